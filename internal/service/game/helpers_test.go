package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingBroadcaster struct {
	count int
	last  Snapshot
}

func (b *countingBroadcaster) Broadcast(snap Snapshot) {
	b.count++
	b.last = snap
}

func newTestContext(t *testing.T, rules *Rules, n int, opts ...Option) (*GameContext, *countingBroadcaster) {
	t.Helper()

	if rules == nil {
		rules = DefaultRules()
	}

	b := &countingBroadcaster{}
	gc := NewGameContext("test-room", rules, b, opts...)

	for id := 1; id <= n; id++ {
		require.NoError(t, gc.RegisterPlayer(id, ""))
	}

	b.count = 0
	return gc, b
}

// startedContext 按 ID 升序分配角色后开始游戏，处于第 0 个阶段（白天）
func startedContext(t *testing.T, rules *Rules, n int, opts ...Option) (*GameContext, *countingBroadcaster) {
	t.Helper()

	gc, b := newTestContext(t, rules, n, opts...)
	require.NoError(t, gc.StartGame())

	b.count = 0
	return gc, b
}

func choose(t *testing.T, gc *GameContext, playerID int, kind ActionKind, value int) {
	t.Helper()

	require.NoError(t, gc.Select(playerID, kind, value))
	require.NoError(t, gc.Confirm(playerID, kind))
}

// collecting 返回指定类型的收集中事件
func collecting(t *testing.T, gc *GameContext, kind EventKind) *Event {
	t.Helper()

	for _, ev := range gc.game.collectingEvents() {
		if ev.Kind == kind {
			return ev
		}
	}

	require.FailNow(t, "没有收集中的事件", string(kind))
	return nil
}

func player(t *testing.T, gc *GameContext, id int) *Player {
	t.Helper()

	p, err := gc.game.Player(id)
	require.NoError(t, err)

	return p
}

func testNow() time.Time {
	return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
}
