package game

import (
	"maps"
	"slices"
)

// 对外可见的玩家信息，不包含角色
type PublicPlayer struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDead    bool   `json:"isDead"`
	PhaseDied int    `json:"phaseDied"`
}

// 推送给玩家本人的完整信息
type PrivatePlayer struct {
	PublicPlayer

	Role      string                     `json:"role,omitempty"`
	Team      Team                       `json:"team,omitempty"`
	Color     string                     `json:"color,omitempty"`
	Inventory []string                   `json:"inventory"`
	Actions   map[ActionKind]*ActionView `json:"actions"`
	Findings  []Finding                  `json:"findings"`
}

// 玩家在某个行动上能看到的内容：只暴露多步行动的当前步骤
type ActionView struct {
	EventID   string          `json:"eventId,omitempty"`
	Selection *int            `json:"selection"`
	Confirmed bool            `json:"confirmed"`
	Completed bool            `json:"completed"`
	PhaseUses int             `json:"phaseUses"`
	GameUses  int             `json:"gameUses"`
	Max       UsageLimit      `json:"max"`
	Step      *StepDefinition `json:"step,omitempty"`
	Targets   []int           `json:"targets"`
}

type EventSummary struct {
	ID           string      `json:"id"`
	Kind         EventKind   `json:"kind"`
	Status       EventStatus `json:"status"`
	ParentID     string      `json:"parentId,omitempty"`
	Depth        int         `json:"depth"`
	ValidTargets []int       `json:"validTargets,omitempty"`
	// 只公开所有存活玩家都有的授权，角色和物品带来的授权只推给本人
	Grants  []GrantPair `json:"grants"`
	Holders int         `json:"holders"`
	// 已确认输入的人数，不暴露具体投向
	Submitted int                          `json:"submitted"`
	Results   map[ActionKind]*ActionResult `json:"results,omitempty"`
}

type GameMeta struct {
	Phase           Phase          `json:"phase"`
	PhaseIndex      int            `json:"phaseIndex"`
	Metaphase       Metaphase      `json:"metaphase"`
	DayCount        int            `json:"dayCount"`
	GameOver        bool           `json:"gameOver"`
	Winner          Team           `json:"winner,omitempty"`
	ActiveEvents    []EventSummary `json:"activeEvents"`
	AvailableEvents []EventKind    `json:"availableEvents"`
	PendingKills    []int          `json:"pendingKills"`
}

// Snapshot 是一次广播的全部内容
type Snapshot struct {
	Players        []PublicPlayer
	Meta           GameMeta
	PrivatePlayers map[int]PrivatePlayer
	History        []HistoryEntry
}

func (g *Game) publicPlayer(p *Player) PublicPlayer {
	return PublicPlayer{
		ID:        p.ID,
		Name:      p.Name,
		IsDead:    p.IsDead,
		PhaseDied: p.PhaseDied,
	}
}

// targetsFor 列出玩家当前可以选择的目标
func (g *Game) targetsFor(p *Player, kind ActionKind, ev *Event) []int {
	targets := make([]int, 0)
	if step := g.CurrentStep(p, kind); step != nil && step.Input == INPUT_OPTION {
		for i := range step.Options {
			targets = append(targets, i)
		}
		return targets
	}

	for _, id := range g.PlayerIDs() {
		if g.selectionValid(p, kind, ev, id) {
			targets = append(targets, id)
		}
	}

	return targets
}

func (g *Game) privatePlayer(p *Player) PrivatePlayer {
	view := PrivatePlayer{
		PublicPlayer: g.publicPlayer(p),
		Role:         p.RoleName(),
		Team:         p.Team,
		Color:        p.Color,
		Inventory:    p.Items(),
		Actions:      make(map[ActionKind]*ActionView),
		Findings:     slices.Clone(p.Findings),
	}

	if view.Findings == nil {
		view.Findings = []Finding{}
	}

	if p.IsDead {
		return view
	}

	for _, ev := range g.collectingEvents() {
		for action := range ev.Grants[p.ID] {
			if _, ok := view.Actions[action]; ok {
				continue
			}

			def := g.Rules.Actions[action]
			av := &ActionView{
				EventID: ev.ID,
				Max:     def.Max,
			}

			if as, ok := p.Actions[action]; ok {
				if as.EventID == ev.ID {
					av.Selection = as.Selection
					av.Confirmed = as.Confirmed
					av.Completed = as.Completed
				}
				av.PhaseUses = as.usesIn(g.PhaseIndex)
				av.GameUses = as.GameUses
			}

			av.Step = g.CurrentStep(p, action)
			if !av.Completed {
				av.Targets = g.targetsFor(p, action, ev)
			} else {
				av.Targets = []int{}
			}

			view.Actions[action] = av
		}
	}

	return view
}

func (g *Game) summarize(ev *Event) EventSummary {
	summary := EventSummary{
		ID:           ev.ID,
		Kind:         ev.Kind,
		Status:       ev.Status,
		ParentID:     ev.ParentID,
		Depth:        ev.Depth,
		ValidTargets: ev.ValidTargets,
		Grants:       make([]GrantPair, 0),
		Holders:      len(ev.Grants),
	}

	var everyone []ActionKind
	if def, ok := g.Rules.Events[ev.Kind]; ok {
		everyone = def.Everyone
	}

	for _, actor := range slices.Sorted(maps.Keys(ev.Grants)) {
		for _, action := range slices.Sorted(maps.Keys(ev.Grants[actor])) {
			if !slices.Contains(everyone, action) {
				continue
			}
			summary.Grants = append(summary.Grants, GrantPair{Action: action, ActorID: actor})
		}
	}

	for _, slot := range ev.Inputs {
		for _, value := range slot {
			if value != nil {
				summary.Submitted++
			}
		}
	}

	if ev.Resolved {
		summary.Results = g.publicResults(ev)
	}

	return summary
}

// publicResults 只保留计票类行动的结果，并去掉效果的发起人
func (g *Game) publicResults(ev *Event) map[ActionKind]*ActionResult {
	results := make(map[ActionKind]*ActionResult)

	for action, result := range ev.Results {
		def, ok := g.Rules.Actions[action]
		if !ok || def.Mode != MODE_VOTE || result == nil {
			continue
		}

		public := *result
		public.Effects = make([]Effect, 0, len(result.Effects))
		for _, e := range result.Effects {
			e.Actor = nil
			public.Effects = append(public.Effects, e)
		}
		results[action] = &public
	}

	return results
}

// AvailableEvents 返回当前阶段允许开始的事件
func (g *Game) AvailableEvents() []EventKind {
	available := make([]EventKind, 0)
	if !g.GameStarted || g.GameOver {
		return available
	}

	for _, kind := range g.Rules.EventOrder {
		if g.Rules.Events[kind].AllowedIn(g.Phase()) {
			available = append(available, kind)
		}
	}

	return available
}

func (g *Game) Meta() GameMeta {
	meta := GameMeta{
		Phase:           g.Phase(),
		PhaseIndex:      g.PhaseIndex,
		Metaphase:       g.Metaphase(),
		DayCount:        g.DayCount(),
		GameOver:        g.GameOver,
		Winner:          g.Winner,
		ActiveEvents:    make([]EventSummary, 0, len(g.ActiveEvents)),
		AvailableEvents: g.AvailableEvents(),
		PendingKills:    g.Pending.Targets(),
	}

	for _, ev := range g.activeEvents() {
		meta.ActiveEvents = append(meta.ActiveEvents, g.summarize(ev))
	}

	return meta
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Players:        make([]PublicPlayer, 0, len(g.Players)),
		Meta:           g.Meta(),
		PrivatePlayers: make(map[int]PrivatePlayer, len(g.Players)),
		History:        slices.Clone(g.History),
	}

	for _, id := range g.PlayerIDs() {
		p := g.Players[id]
		snap.Players = append(snap.Players, g.publicPlayer(p))
		snap.PrivatePlayers[id] = g.privatePlayer(p)
	}

	if snap.History == nil {
		snap.History = []HistoryEntry{}
	}

	return snap
}
