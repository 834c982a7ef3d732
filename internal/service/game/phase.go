package game

import "slices"

// Phase 返回当前阶段，游戏开始前返回空字符串
func (g *Game) Phase() Phase {
	if !g.GameStarted {
		return ""
	}

	return PhaseList[g.PhaseIndex%len(PhaseList)]
}

func (g *Game) DayCount() int {
	return g.PhaseIndex / len(PhaseList)
}

// advancePhase 将阶段序号加一，并在接受新输入之前刷新授权
func (g *Game) advancePhase() {
	g.PhaseIndex++
	g.Pending = NewPending()
	g.refresh()
}

// 从当前阶段往后到达指定阶段需要前进的步数，已处于该阶段时为 0
func stepsUntil(current int, target Phase) (int, bool) {
	idx := slices.Index(PhaseList, target)
	if idx < 0 {
		return 0, false
	}

	n := len(PhaseList)
	return ((idx-current%n)%n + n) % n, true
}
