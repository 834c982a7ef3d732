package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLynch(t *testing.T, gc *GameContext) *Event {
	t.Helper()

	ev, err := gc.StartEvent(EVENT_LYNCH, "")
	require.NoError(t, err)

	return ev
}

func TestLynchTiebreaker(t *testing.T) {
	gc, _ := startedContext(t, nil, 8)

	lynch := startLynch(t, gc)

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 3)
	choose(t, gc, 3, ACTION_VOTE, 7)
	choose(t, gc, 4, ACTION_VOTE, 7)

	require.NoError(t, gc.ResolveEvent(lynch.ID))

	result := lynch.Results[ACTION_VOTE]
	require.NotNil(t, result)
	assert.True(t, result.Tied)
	assert.Equal(t, []int{3, 7}, result.Highest)
	assert.Empty(t, result.Effects)
	assert.Empty(t, gc.game.Pending.Kills)

	require.NotEmpty(t, lynch.ChildID)
	child, err := gc.game.Event(lynch.ChildID)
	require.NoError(t, err)

	assert.Equal(t, lynch.ID, child.ParentID)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, []int{3, 7}, child.ValidTargets)
	assert.Equal(t, EVENT_STATUS_COLLECTING, child.Status)

	// 加赛只能在平票的玩家之间选择
	err = gc.Select(5, ACTION_VOTE, 1)
	require.Error(t, err)
	assert.True(t, IsStateError(err))

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 3)
	choose(t, gc, 4, ACTION_VOTE, 3)
	choose(t, gc, 3, ACTION_VOTE, 7)

	require.NoError(t, gc.ResolveEvent(child.ID))

	effects := child.Results[ACTION_VOTE].Effects
	require.Len(t, effects, 1)
	assert.Equal(t, EFFECT_KILL, effects[0].Type)
	assert.Equal(t, 3, effects[0].Target)
	assert.Equal(t, []int{3}, gc.game.Pending.Targets())

	// 投票产生的死亡要等到死亡结算
	assert.True(t, player(t, gc, 3).IsAlive())

	require.NoError(t, gc.ResolveDeaths())
	assert.True(t, player(t, gc, 3).IsDead)
	assert.Equal(t, 0, player(t, gc, 3).PhaseDied)
}

func TestLynchAffectAll(t *testing.T) {
	rules := DefaultRules()
	rules.Events[EVENT_LYNCH].TiePolicy = TIE_AFFECT_ALL

	gc, _ := startedContext(t, rules, 8)
	lynch := startLynch(t, gc)

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 7)

	require.NoError(t, gc.ResolveEvent(lynch.ID))

	assert.Empty(t, lynch.ChildID)
	assert.Equal(t, []int{3, 7}, gc.game.Pending.Targets())
}

func TestLynchAffectNone(t *testing.T) {
	rules := DefaultRules()
	rules.Events[EVENT_LYNCH].TiePolicy = TIE_AFFECT_NONE

	gc, _ := startedContext(t, rules, 8)
	lynch := startLynch(t, gc)

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 7)

	require.NoError(t, gc.ResolveEvent(lynch.ID))

	assert.Empty(t, lynch.ChildID)
	assert.Empty(t, gc.game.Pending.Kills)
}

func TestTiebreakDepthGuard(t *testing.T) {
	rules := DefaultRules()
	rules.TiebreakDepth = 1

	gc, _ := startedContext(t, rules, 8)
	lynch := startLynch(t, gc)

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 7)
	require.NoError(t, gc.ResolveEvent(lynch.ID))

	child, err := gc.game.Event(lynch.ChildID)
	require.NoError(t, err)

	choose(t, gc, 1, ACTION_VOTE, 3)
	choose(t, gc, 2, ACTION_VOTE, 7)
	require.NoError(t, gc.ResolveEvent(child.ID))

	// 深度达到上限后平票不再加赛，也不产生效果
	assert.Empty(t, child.ChildID)
	assert.True(t, child.Results[ACTION_VOTE].Tied)
	assert.Empty(t, child.Results[ACTION_VOTE].Effects)
	assert.Empty(t, gc.game.collectingEvents())
	assert.Empty(t, gc.game.Pending.Kills)
}

func TestResolveEventIsNotRepeatable(t *testing.T) {
	gc, b := startedContext(t, nil, 5)
	lynch := startLynch(t, gc)

	choose(t, gc, 1, ACTION_VOTE, 4)
	require.NoError(t, gc.ResolveEvent(lynch.ID))

	count := b.count
	pending := gc.game.Pending.Targets()

	err := gc.ResolveEvent(lynch.ID)
	require.Error(t, err)
	assert.True(t, IsStateError(err))

	assert.Equal(t, count, b.count)
	assert.Equal(t, pending, gc.game.Pending.Targets())
	assert.Equal(t, EVENT_STATUS_RESOLVED, lynch.Status)
}

func TestResolveUnknownEvent(t *testing.T) {
	gc, b := startedContext(t, nil, 5)

	err := gc.ResolveEvent("missing")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Zero(t, b.count)
}

func TestLynchWithoutVotesHasNoEffect(t *testing.T) {
	gc, _ := startedContext(t, nil, 5)
	lynch := startLynch(t, gc)

	require.NoError(t, gc.ResolveEvent(lynch.ID))

	result := lynch.Results[ACTION_VOTE]
	assert.False(t, result.Tied)
	assert.Empty(t, result.Highest)
	assert.Empty(t, result.Effects)
}

func TestDeadPlayerLosesVoteGrant(t *testing.T) {
	gc, _ := startedContext(t, nil, 5)
	lynch := startLynch(t, gc)

	choose(t, gc, 4, ACTION_VOTE, 5)
	require.NoError(t, gc.KillPlayer(4))

	assert.False(t, lynch.HasGrant(4, ACTION_VOTE))
	_, ok := lynch.Input(ACTION_VOTE, 4)
	assert.False(t, ok)

	require.NoError(t, gc.ResolveEvent(lynch.ID))
	assert.Empty(t, gc.game.Pending.Kills)
}
