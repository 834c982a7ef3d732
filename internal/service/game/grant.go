package game

import (
	"cmp"
	"slices"
)

type GrantPair struct {
	Action  ActionKind `json:"action"`
	ActorID int        `json:"actorId"`
}

// CapabilityIndex 缓存 事件类型 -> 玩家 -> 行动集合
// 只在角色、物品、死亡或阶段变化时重建，开始事件时直接查表
type CapabilityIndex struct {
	byEvent map[EventKind]map[int]map[ActionKind]struct{}
	dirty   bool
}

func newCapabilityIndex() *CapabilityIndex {
	return &CapabilityIndex{
		byEvent: make(map[EventKind]map[int]map[ActionKind]struct{}),
		dirty:   true,
	}
}

func (ci *CapabilityIndex) invalidate() {
	ci.dirty = true
}

func (ci *CapabilityIndex) add(event EventKind, actor int, action ActionKind) {
	actors, ok := ci.byEvent[event]
	if !ok {
		actors = make(map[int]map[ActionKind]struct{})
		ci.byEvent[event] = actors
	}

	actions, ok := actors[actor]
	if !ok {
		actions = make(map[ActionKind]struct{})
		actors[actor] = actions
	}

	actions[action] = struct{}{}
}

func (ci *CapabilityIndex) addGrants(actor int, grants []Grant) {
	for _, gr := range grants {
		for _, ev := range gr.Events {
			ci.add(ev, actor, gr.Action)
		}
	}
}

func (ci *CapabilityIndex) rebuild(g *Game) {
	clear(ci.byEvent)

	for _, p := range g.LivingPlayers() {
		if p.Role != nil {
			ci.addGrants(p.ID, p.Role.Grants)
		}

		for _, name := range p.Items() {
			if item, ok := g.Rules.Items[name]; ok {
				ci.addGrants(p.ID, item.Grants)
			}
		}
	}

	ci.dirty = false
}

func (g *Game) capabilities() *CapabilityIndex {
	if g.caps.dirty {
		g.caps.rebuild(g)
	}

	return g.caps
}

// ResolveGrants 计算某个事件的授权：事件显式授权 + 角色授权 + 物品授权
// 结果按玩家 ID 升序，同一玩家按行动名排序
func (g *Game) ResolveGrants(ev *Event) []GrantPair {
	def := g.Rules.Events[ev.Kind]

	seen := make(map[GrantPair]struct{})
	pairs := make([]GrantPair, 0)

	push := func(pair GrantPair) {
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}

	for _, p := range g.LivingPlayers() {
		for _, action := range def.Everyone {
			push(GrantPair{Action: action, ActorID: p.ID})
		}
	}

	for actor, actions := range g.capabilities().byEvent[ev.Kind] {
		for action := range actions {
			push(GrantPair{Action: action, ActorID: actor})
		}
	}

	slices.SortFunc(pairs, func(a, b GrantPair) int {
		return cmp.Or(
			cmp.Compare(a.ActorID, b.ActorID),
			cmp.Compare(a.Action, b.Action),
		)
	})

	return pairs
}

// applyGrants 重新计算事件授权，并为每个被授权玩家预置“尚未选择”的输入槽
func (g *Game) applyGrants(ev *Event) []GrantPair {
	pairs := g.ResolveGrants(ev)

	ev.Grants = make(map[int]map[ActionKind]struct{}, len(pairs))
	for _, pair := range pairs {
		actions, ok := ev.Grants[pair.ActorID]
		if !ok {
			actions = make(map[ActionKind]struct{})
			ev.Grants[pair.ActorID] = actions
		}
		actions[pair.Action] = struct{}{}

		slot := ev.inputSlot(pair.Action)
		if _, ok := slot[pair.ActorID]; !ok {
			slot[pair.ActorID] = nil
		}
	}

	// 失去授权的玩家的输入作废
	for action, slot := range ev.Inputs {
		for actor := range slot {
			if !ev.HasGrant(actor, action) {
				delete(slot, actor)
			}
		}
	}

	return pairs
}

// refresh 在阶段、角色、物品或生死变化后调用：
// 重建授权索引，刷新所有收集中事件的授权，清除已经失效的选择
func (g *Game) refresh() {
	g.caps.invalidate()

	for _, ev := range g.collectingEvents() {
		g.applyGrants(ev)
	}

	for _, id := range g.PlayerIDs() {
		p := g.Players[id]

		for kind, as := range p.Actions {
			if as.EventID == "" {
				continue
			}

			ev, ok := g.Events[as.EventID]
			if !ok || ev.Status != EVENT_STATUS_COLLECTING || !ev.HasGrant(p.ID, kind) {
				as.resetProgress()
				continue
			}

			if as.Selection != nil && !g.selectionValid(p, kind, ev, *as.Selection) {
				if as.Confirmed {
					ev.withdraw(kind, p.ID)
				}
				as.clearSelection()
			}
		}
	}
}
