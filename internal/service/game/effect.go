package game

import "go.uber.org/zap"

type EffectType string

const (
	EFFECT_KILL        EffectType = "KILL"
	EFFECT_PROTECT     EffectType = "PROTECT"
	EFFECT_PARDON      EffectType = "PARDON"
	EFFECT_GIVE_ITEM   EffectType = "GIVE_ITEM"
	EFFECT_ASSIGN_ROLE EffectType = "ASSIGN_ROLE"
)

// Effect 是纯数据的状态变更描述，由结算逻辑产生，由 EffectApplier 提交
type Effect struct {
	Type    EffectType `json:"type"`
	Target  int        `json:"target"`
	Actor   *int       `json:"actor,omitempty"`
	Payload string     `json:"payload,omitempty"`
	EventID string     `json:"eventId,omitempty"`
	// 为 true 时进入待处决名单，等到 RESOLVE_DEATHS 才生效
	Deferred bool `json:"deferred,omitempty"`
}

// EffectApplier 是唯一修改玩家生死、物品和角色的入口
type EffectApplier struct {
	game *Game
}

func NewEffectApplier(g *Game) *EffectApplier {
	return &EffectApplier{game: g}
}

// Apply 提交一个效果。PROTECT/PARDON 只在结算阶段作用于待处决名单，
// 不应到达这里；未知类型同样只报告不执行
func (ea *EffectApplier) Apply(e Effect) error {
	g := ea.game

	target, err := g.Player(e.Target)
	if err != nil {
		return err
	}

	switch e.Type {
	case EFFECT_KILL:
		ea.kill(target)

	case EFFECT_GIVE_ITEM:
		if _, ok := g.Rules.Items[e.Payload]; !ok {
			return configErrorf("物品 %s 未定义", e.Payload)
		}

		target.Inventory[e.Payload] = struct{}{}
		g.refresh()

	case EFFECT_ASSIGN_ROLE:
		role, ok := g.Rules.Roles[e.Payload]
		if !ok {
			return validationErrorf("角色 %s 未定义", e.Payload)
		}

		target.Role = role
		target.Team = role.Team
		target.Color = role.Color
		target.Actions = make(map[ActionKind]*ActionState)
		g.refresh()

	case EFFECT_PROTECT, EFFECT_PARDON:
		zap.L().Error(
			"保护/赦免效果不应直接提交",
			zap.String("type", string(e.Type)),
			zap.Int("target", e.Target),
		)
		return stateErrorf("效果 %s 只能作用于待处决名单", e.Type)

	default:
		zap.L().Error(
			"未知的效果类型",
			zap.String("type", string(e.Type)),
			zap.Int("target", e.Target),
		)
		return stateErrorf("未知的效果类型 %s", e.Type)
	}

	return nil
}

// kill 幂等：对已死亡的玩家不做任何修改
func (ea *EffectApplier) kill(target *Player) {
	if target.IsDead {
		return
	}

	g := ea.game

	target.IsDead = true
	target.PhaseDied = g.PhaseIndex
	target.clearSelections()

	g.refresh()
}
