package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(n int) *Game {
	g := NewGame(DefaultRules())
	g.now = testNow

	for id := 1; id <= n; id++ {
		g.Players[id] = NewPlayer(id, "")
	}

	return g
}

func TestKillIsIdempotent(t *testing.T) {
	g := newTestGame(3)
	ea := NewEffectApplier(g)

	g.GameStarted = true
	require.NoError(t, ea.Apply(Effect{Type: EFFECT_KILL, Target: 2}))

	p := g.Players[2]
	assert.True(t, p.IsDead)
	assert.Equal(t, 0, p.PhaseDied)

	g.advancePhase()
	require.NoError(t, ea.Apply(Effect{Type: EFFECT_KILL, Target: 2}))

	// 第二次击杀不改变死亡阶段
	assert.True(t, p.IsDead)
	assert.Equal(t, 0, p.PhaseDied)
}

func TestKillClearsSelections(t *testing.T) {
	gc, _ := startedContext(t, nil, 5)
	startLynch(t, gc)

	require.NoError(t, gc.Select(3, ACTION_VOTE, 4))
	require.NoError(t, gc.KillPlayer(3))

	as := player(t, gc, 3).Actions[ACTION_VOTE]
	assert.Nil(t, as.Selection)
	assert.Empty(t, as.EventID)
}

func TestApplyGiveItem(t *testing.T) {
	g := newTestGame(3)
	ea := NewEffectApplier(g)

	require.NoError(t, ea.Apply(Effect{Type: EFFECT_GIVE_ITEM, Target: 1, Payload: ITEM_GUN}))
	assert.True(t, g.Players[1].HasItem(ITEM_GUN))
	assert.Equal(t, []string{ITEM_GUN}, g.Players[1].Items())

	err := ea.Apply(Effect{Type: EFFECT_GIVE_ITEM, Target: 1, Payload: "sword"})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestApplyAssignRole(t *testing.T) {
	g := newTestGame(3)
	ea := NewEffectApplier(g)

	g.Players[1].action(ACTION_VOTE).GameUses = 2

	require.NoError(t, ea.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: 1, Payload: ROLE_MURDERER}))

	p := g.Players[1]
	assert.Equal(t, ROLE_MURDERER, p.RoleName())
	assert.Equal(t, TEAM_MAFIA, p.Team)
	assert.NotEmpty(t, p.Color)
	assert.Empty(t, p.Actions)

	err := ea.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: 1, Payload: "jester"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestApplyRejectsPendingOnlyAndUnknownEffects(t *testing.T) {
	g := newTestGame(3)
	ea := NewEffectApplier(g)

	for _, typ := range []EffectType{EFFECT_PROTECT, EFFECT_PARDON, "EXPLODE"} {
		err := ea.Apply(Effect{Type: typ, Target: 1})
		require.Error(t, err, typ)
		assert.True(t, IsStateError(err), typ)
	}

	assert.True(t, g.Players[1].IsAlive())
}

func TestApplyUnknownTarget(t *testing.T) {
	g := newTestGame(3)

	err := NewEffectApplier(g).Apply(Effect{Type: EFFECT_KILL, Target: 9})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestPendingSpareBlocksLaterKills(t *testing.T) {
	pending := NewPending()

	assert.True(t, pending.AddKill(Effect{Type: EFFECT_KILL, Target: 4}))
	assert.False(t, pending.AddKill(Effect{Type: EFFECT_KILL, Target: 4}))

	assert.True(t, pending.Spare(4, EFFECT_PARDON))
	assert.Empty(t, pending.Kills)

	assert.False(t, pending.AddKill(Effect{Type: EFFECT_KILL, Target: 4}))
	assert.False(t, pending.Spare(5, EFFECT_PROTECT))
	assert.False(t, pending.AddKill(Effect{Type: EFFECT_KILL, Target: 5}))
}
