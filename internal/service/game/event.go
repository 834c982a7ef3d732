package game

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// 事件状态：收集中 -> 已结算 -> 已清除
type EventStatus string

const (
	EVENT_STATUS_COLLECTING EventStatus = "COLLECTING"
	EVENT_STATUS_RESOLVED   EventStatus = "RESOLVED"
	EVENT_STATUS_CLEARED    EventStatus = "CLEARED"
)

const (
	INITIATOR_HOST   = "host"
	INITIATOR_SYSTEM = "system"
)

// 单个行动在事件结算时的结果
type ActionResult struct {
	Action  ActionKind `json:"action"`
	Tally   *Tally     `json:"tally,omitempty"`
	Highest []int      `json:"highest,omitempty"`
	Tied    bool       `json:"tied"`
	Effects []Effect   `json:"effects"`
	ChildID string     `json:"childId,omitempty"`
}

type Event struct {
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	// 平票加赛时指向上一轮事件
	ParentID    string `json:"parentId,omitempty"`
	Depth       int    `json:"depth"`
	PhaseIndex  int    `json:"phaseIndex"`
	InitiatedBy string `json:"initiatedBy"`

	Status     EventStatus `json:"status"`
	Resolved   bool        `json:"resolved"`
	StartedAt  time.Time   `json:"startedAt"`
	ResolvedAt time.Time   `json:"resolvedAt,omitzero"`

	// nil 表示不限制目标
	ValidTargets []int `json:"validTargets,omitempty"`

	Grants map[int]map[ActionKind]struct{} `json:"-"`

	// 行动 -> 玩家 -> 选择，nil 表示尚未选择
	Inputs  map[ActionKind]map[int]*int   `json:"-"`
	Results map[ActionKind]*ActionResult `json:"results,omitempty"`
	ChildID string                       `json:"childId,omitempty"`
}

func newEvent(kind EventKind, phaseIndex int, initiatedBy string, now time.Time) *Event {
	return &Event{
		ID:          GenID(),
		Kind:        kind,
		PhaseIndex:  phaseIndex,
		InitiatedBy: initiatedBy,
		Status:      EVENT_STATUS_COLLECTING,
		StartedAt:   now,
		Grants:      make(map[int]map[ActionKind]struct{}),
		Inputs:      make(map[ActionKind]map[int]*int),
		Results:     make(map[ActionKind]*ActionResult),
	}
}

func (ev *Event) inputSlot(action ActionKind) map[int]*int {
	slot, ok := ev.Inputs[action]
	if !ok {
		slot = make(map[int]*int)
		ev.Inputs[action] = slot
	}

	return slot
}

func (ev *Event) HasGrant(actor int, action ActionKind) bool {
	actions, ok := ev.Grants[actor]
	if !ok {
		return false
	}

	_, ok = actions[action]
	return ok
}

func (ev *Event) TargetAllowed(target int) bool {
	return ev.ValidTargets == nil || slices.Contains(ev.ValidTargets, target)
}

func (ev *Event) record(action ActionKind, actor int, value int) {
	ev.inputSlot(action)[actor] = &value
}

// withdraw 把输入恢复为“尚未选择”
func (ev *Event) withdraw(action ActionKind, actor int) {
	slot := ev.inputSlot(action)
	if _, ok := slot[actor]; ok {
		slot[actor] = nil
	}
}

// Input 返回玩家在该事件上已记录的输入
func (ev *Event) Input(action ActionKind, actor int) (int, bool) {
	value := ev.Inputs[action][actor]
	if value == nil {
		return 0, false
	}

	return *value, true
}

// Tally 只统计持有授权的玩家的非空输入
func (ev *Event) Tally(action ActionKind) *Tally {
	t := newTally()

	for actor, value := range ev.Inputs[action] {
		if value == nil || !ev.HasGrant(actor, action) {
			continue
		}
		if !ev.TargetAllowed(*value) {
			continue
		}

		t.add(*value)
	}

	return t
}

// 已记录输入的玩家，升序
func (ev *Event) actorsWithInput(action ActionKind) []int {
	actors := make([]int, 0, len(ev.Inputs[action]))
	for actor, value := range ev.Inputs[action] {
		if value != nil && ev.HasGrant(actor, action) {
			actors = append(actors, actor)
		}
	}
	slices.Sort(actors)

	return actors
}

// openEvent 创建并激活一个事件，立即计算授权
func (g *Game) openEvent(kind EventKind, initiatedBy string, parent *Event, targets []int) *Event {
	ev := newEvent(kind, g.PhaseIndex, initiatedBy, g.now())

	if parent != nil {
		ev.ParentID = parent.ID
		ev.Depth = parent.Depth + 1
		ev.ValidTargets = slices.Clone(targets)
		parent.ChildID = ev.ID
	}

	g.Events[ev.ID] = ev
	g.ActiveEvents = append(g.ActiveEvents, ev.ID)
	g.applyGrants(ev)

	return ev
}

// resolve 计票、处理平票并生成效果，效果由调用方提交
// 对已结算的事件返回 StateError，不做任何修改
func (g *Game) resolve(ev *Event) ([]Effect, error) {
	if ev.Resolved {
		return nil, stateErrorf("事件 %s 已经结算", ev.ID)
	}
	if ev.Status != EVENT_STATUS_COLLECTING {
		return nil, stateErrorf("事件 %s 已被清除", ev.ID)
	}

	def := g.Rules.Events[ev.Kind]
	effects := make([]Effect, 0)

	for _, kind := range def.Actions {
		action := g.Rules.Actions[kind]
		result := &ActionResult{Action: kind}

		switch action.Mode {
		case MODE_VOTE:
			result.Effects = g.resolveVote(ev, def, action, result)
		case MODE_INDIVIDUAL:
			result.Effects = g.resolveIndividual(ev, action)
		}

		if result.Effects == nil {
			result.Effects = []Effect{}
		}

		ev.Results[kind] = result
		effects = append(effects, result.Effects...)

		g.consumeInputs(ev, kind)
	}

	ev.Resolved = true
	ev.Status = EVENT_STATUS_RESOLVED
	ev.ResolvedAt = g.now()

	return effects, nil
}

func (g *Game) resolveVote(ev *Event, def *EventDefinition, action *ActionDefinition, result *ActionResult) []Effect {
	tally := ev.Tally(action.Kind)
	highest := tally.Highest()

	result.Tally = tally
	result.Highest = highest
	result.Tied = len(highest) > 1

	targets := highest
	if result.Tied {
		switch def.TiePolicy {
		case TIE_AFFECT_ALL:
		case TIE_TIEBREAKER:
			if ev.Depth+1 > g.Rules.TiebreakDepth {
				zap.L().Warn(
					"加赛轮数达到上限，本轮平票不产生效果",
					zap.String("event_id", ev.ID),
					zap.Int("depth", ev.Depth),
				)
				return nil
			}

			child := g.openEvent(ev.Kind, ev.InitiatedBy, ev, highest)
			result.ChildID = child.ID
			return nil
		default:
			return nil
		}
	}

	effects := make([]Effect, 0, len(targets))
	for _, target := range targets {
		effects = append(effects, Effect{
			Type:     action.Outcome,
			Target:   target,
			EventID:  ev.ID,
			Deferred: action.Outcome == EFFECT_KILL,
		})
	}

	return effects
}

func (g *Game) resolveIndividual(ev *Event, action *ActionDefinition) []Effect {
	resolver := individualResolvers[action.Kind]
	effects := make([]Effect, 0)

	for _, actorID := range ev.actorsWithInput(action.Kind) {
		actor := g.Players[actorID]
		if actor == nil || !actor.IsAlive() {
			continue
		}

		value, _ := ev.Input(action.Kind, actorID)
		if !ev.TargetAllowed(value) {
			continue
		}

		effects = append(effects, resolver(g, ev, actor, value, actor.action(action.Kind))...)
	}

	return effects
}

// consumeInputs 为输入被计入的玩家增加使用次数，并清除其在该事件上的选择
func (g *Game) consumeInputs(ev *Event, kind ActionKind) {
	for _, actorID := range ev.actorsWithInput(kind) {
		if p, ok := g.Players[actorID]; ok {
			as := p.action(kind)
			as.recordUse(g.PhaseIndex)
			as.resetProgress()
		}
	}

	for actorID := range ev.Grants {
		p, ok := g.Players[actorID]
		if !ok {
			continue
		}

		if as, ok := p.Actions[kind]; ok && as.EventID == ev.ID {
			as.resetProgress()
		}
	}
}
