package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGrantsCombinesSources(t *testing.T) {
	g := newTestGame(4)
	ea := NewEffectApplier(g)
	g.GameStarted = true
	g.PhaseIndex = 1

	require.NoError(t, ea.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: 1, Payload: ROLE_DETECTIVE}))
	require.NoError(t, ea.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: 2, Payload: ROLE_VILLAGER}))
	require.NoError(t, ea.Apply(Effect{Type: EFFECT_GIVE_ITEM, Target: 1, Payload: ITEM_BADGE}))
	require.NoError(t, ea.Apply(Effect{Type: EFFECT_GIVE_ITEM, Target: 3, Payload: ITEM_BADGE}))

	ev := newEvent(EVENT_INVESTIGATE, g.PhaseIndex, INITIATOR_SYSTEM, testNow())

	// 角色和物品给了同一个授权时只出现一次
	assert.Equal(t, []GrantPair{
		{Action: ACTION_INVESTIGATE, ActorID: 1},
		{Action: ACTION_INVESTIGATE, ActorID: 3},
	}, g.ResolveGrants(ev))
}

func TestResolveGrantsEveryoneSkipsDead(t *testing.T) {
	g := newTestGame(3)
	g.GameStarted = true
	g.Players[2].IsDead = true

	ev := newEvent(EVENT_LYNCH, 0, INITIATOR_HOST, testNow())

	assert.Equal(t, []GrantPair{
		{Action: ACTION_VOTE, ActorID: 1},
		{Action: ACTION_VOTE, ActorID: 3},
	}, g.ResolveGrants(ev))
}

func TestCapabilityIndexRebuildsOnChange(t *testing.T) {
	g := newTestGame(3)
	ea := NewEffectApplier(g)
	g.GameStarted = true
	g.PhaseIndex = 1

	ev := g.openEvent(EVENT_MURDER, INITIATOR_SYSTEM, nil, nil)
	assert.Empty(t, ev.Grants)
	assert.False(t, g.caps.dirty)

	require.NoError(t, ea.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: 2, Payload: ROLE_MURDERER}))

	// 收集中的事件随角色变化刷新授权，并预置空输入槽
	assert.True(t, ev.HasGrant(2, ACTION_KILL))
	value, ok := ev.Inputs[ACTION_KILL][2]
	assert.True(t, ok)
	assert.Nil(t, value)

	require.NoError(t, ea.Apply(Effect{Type: EFFECT_KILL, Target: 2}))
	assert.False(t, ev.HasGrant(2, ACTION_KILL))
	_, ok = ev.Inputs[ACTION_KILL][2]
	assert.False(t, ok)
}

func TestResolvedEventKeepsGrants(t *testing.T) {
	gc, _ := startedContext(t, nil, 5)
	lynch := startLynch(t, gc)

	require.NoError(t, gc.ResolveEvent(lynch.ID))
	require.NoError(t, gc.KillPlayer(5))

	// 只有收集中的事件会重新计算授权
	assert.True(t, lynch.HasGrant(5, ACTION_VOTE))
}
