package game

// 行为按 ActionKind 查表，定义数据本身不携带函数

type eligibilityFunc func(g *Game, actor *Player, target *Player) bool

type stepFunc func(g *Game, actor *Player, step int, value int, data map[string]int) bool

type individualFunc func(g *Game, ev *Event, actor *Player, value int, state *ActionState) []Effect

func aliveOther(_ *Game, actor *Player, target *Player) bool {
	return target.IsAlive() && target.ID != actor.ID
}

var eligibilityTable = map[ActionKind]eligibilityFunc{
	ACTION_VOTE: aliveOther,
	ACTION_KILL: func(_ *Game, actor *Player, target *Player) bool {
		return target.IsAlive() && target.Team != actor.Team
	},
	ACTION_PROTECT: func(_ *Game, _ *Player, target *Player) bool {
		return target.IsAlive()
	},
	ACTION_INVESTIGATE: aliveOther,
	// 只能赦免已经在待处决名单上的玩家
	ACTION_PARDON: func(g *Game, _ *Player, target *Player) bool {
		return target.IsAlive() && g.Pending.IsPending(target.ID)
	},
	ACTION_SHOOT: aliveOther,
	ACTION_ARM:   aliveOther,
}

var stepResolvers = map[ActionKind]stepFunc{
	ACTION_ARM: func(g *Game, actor *Player, step int, value int, data map[string]int) bool {
		switch step {
		case 0:
			recipient, ok := g.Players[value]
			if !ok || !recipient.IsAlive() || recipient.ID == actor.ID {
				return false
			}
			data["recipient"] = value
			return true

		case 1:
			recipient, ok := g.Players[data["recipient"]]
			if !ok || !recipient.IsAlive() {
				return false
			}
			options := g.Rules.Actions[ACTION_ARM].Steps[1].Options
			if value < 0 || value >= len(options) {
				return false
			}
			if _, ok := g.Rules.Items[options[value]]; !ok {
				return false
			}
			data["item"] = value
			return true
		}

		return false
	},
}

var individualResolvers = map[ActionKind]individualFunc{
	ACTION_PROTECT: func(_ *Game, ev *Event, actor *Player, value int, _ *ActionState) []Effect {
		return []Effect{{Type: EFFECT_PROTECT, Target: value, Actor: actorRef(actor.ID), EventID: ev.ID}}
	},

	ACTION_PARDON: func(_ *Game, ev *Event, actor *Player, value int, _ *ActionState) []Effect {
		return []Effect{{Type: EFFECT_PARDON, Target: value, Actor: actorRef(actor.ID), EventID: ev.ID}}
	},

	ACTION_INVESTIGATE: func(g *Game, ev *Event, actor *Player, value int, _ *ActionState) []Effect {
		target, ok := g.Players[value]
		if !ok {
			return nil
		}

		actor.Findings = append(actor.Findings, Finding{
			EventID:    ev.ID,
			PhaseIndex: g.PhaseIndex,
			Target:     target.ID,
			Team:       target.Team,
		})

		return nil
	},

	ACTION_SHOOT: func(_ *Game, ev *Event, actor *Player, value int, _ *ActionState) []Effect {
		return []Effect{{Type: EFFECT_KILL, Target: value, Actor: actorRef(actor.ID), EventID: ev.ID}}
	},

	ACTION_ARM: func(g *Game, ev *Event, actor *Player, _ int, state *ActionState) []Effect {
		if !state.Completed {
			return nil
		}

		// 确认之后到结算之前收件人可能已经死亡
		recipient, ok := g.Players[state.StepData["recipient"]]
		if !ok || !recipient.IsAlive() {
			return nil
		}

		options := g.Rules.Actions[ACTION_ARM].Steps[1].Options
		idx := state.StepData["item"]
		if idx < 0 || idx >= len(options) {
			return nil
		}

		return []Effect{{
			Type:    EFFECT_GIVE_ITEM,
			Target:  recipient.ID,
			Actor:   actorRef(actor.ID),
			Payload: options[idx],
			EventID: ev.ID,
		}}
	},
}

func actorRef(id int) *int {
	return &id
}
