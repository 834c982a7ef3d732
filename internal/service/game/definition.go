package game

import "slices"

// 阶段按固定顺序循环：白天 -> 夜晚 -> 白天 ...
type Phase string

const (
	PHASE_DAY   Phase = "day"
	PHASE_NIGHT Phase = "night"
)

var PhaseList = []Phase{PHASE_DAY, PHASE_NIGHT}

// 游戏的粗粒度生命周期，与 Phase 正交
type Metaphase string

const (
	METAPHASE_PREGAME     Metaphase = "pregame"
	METAPHASE_IN_PROGRESS Metaphase = "in_progress"
	METAPHASE_POSTGAME    Metaphase = "postgame"
)

type Team string

const (
	TEAM_TOWN  Team = "town"
	TEAM_MAFIA Team = "mafia"
)

type ActionKind string

const (
	ACTION_VOTE        ActionKind = "VOTE"
	ACTION_KILL        ActionKind = "KILL"
	ACTION_PROTECT     ActionKind = "PROTECT"
	ACTION_INVESTIGATE ActionKind = "INVESTIGATE"
	ACTION_PARDON      ActionKind = "PARDON"
	ACTION_SHOOT       ActionKind = "SHOOT"
	ACTION_ARM         ActionKind = "ARM"
)

type EventKind string

const (
	EVENT_LYNCH       EventKind = "lynch"
	EVENT_PARDON      EventKind = "pardon"
	EVENT_SHOOT       EventKind = "shoot"
	EVENT_MURDER      EventKind = "murder"
	EVENT_PROTECT     EventKind = "protect"
	EVENT_INVESTIGATE EventKind = "investigate"
	EVENT_ARM         EventKind = "arm"
)

// 平票处理策略
type TiePolicy string

const (
	TIE_AFFECT_NONE TiePolicy = "AFFECT_NONE"
	TIE_AFFECT_ALL  TiePolicy = "AFFECT_ALL"
	TIE_TIEBREAKER  TiePolicy = "TIEBREAKER"
)

// vote：所有授权玩家的输入汇总计票；individual：每个玩家的输入单独结算
type ResolveMode string

const (
	MODE_VOTE       ResolveMode = "vote"
	MODE_INDIVIDUAL ResolveMode = "individual"
)

type InputKind string

const (
	INPUT_PLAYER InputKind = "player"
	INPUT_OPTION InputKind = "option"
)

const (
	ROLE_VILLAGER  = "villager"
	ROLE_MURDERER  = "murderer"
	ROLE_DETECTIVE = "detective"
	ROLE_DOCTOR    = "doctor"
	ROLE_GOVERNOR  = "governor"
	ROLE_SMITH     = "smith"
)

const (
	ITEM_GUN   = "gun"
	ITEM_BADGE = "badge"
)

type Grant struct {
	Action ActionKind  `json:"action"`
	Events []EventKind `json:"events"`
}

type RoleDefinition struct {
	Name   string  `json:"name"`
	Team   Team    `json:"team"`
	Color  string  `json:"color"`
	Grants []Grant `json:"grants"`
}

type ItemDefinition struct {
	Name   string  `json:"name"`
	Grants []Grant `json:"grants"`
}

// 0 表示不限次数
type UsageLimit struct {
	PerPhase int `json:"perPhase"`
	PerGame  int `json:"perGame"`
}

type StepDefinition struct {
	Name    string    `json:"name"`
	Input   InputKind `json:"input"`
	Options []string  `json:"options,omitempty"`
}

type ActionDefinition struct {
	Kind  ActionKind  `json:"kind"`
	Mode  ResolveMode `json:"mode"`
	Input InputKind   `json:"input"`
	Max   UsageLimit  `json:"max"`
	// 为空表示单步行动
	Steps []StepDefinition `json:"steps,omitempty"`
	// 仅 vote 模式使用：计票胜出者受到的效果
	Outcome EffectType `json:"outcome,omitempty"`
}

func (ad *ActionDefinition) IsMultiStep() bool {
	return len(ad.Steps) > 0
}

type EventDefinition struct {
	Kind      EventKind `json:"kind"`
	Phases    []Phase   `json:"phases"`
	AutoStart bool      `json:"autoStart"`
	// 显式授权：所有存活玩家都获得这些行动
	Everyone  []ActionKind `json:"everyone,omitempty"`
	Actions   []ActionKind `json:"actions"`
	TiePolicy TiePolicy    `json:"tiePolicy"`
}

func (ed *EventDefinition) AllowedIn(phase Phase) bool {
	return slices.Contains(ed.Phases, phase)
}

type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// 玩家人数达到 MinPlayers 时至少需要分配的角色
type RoleQuota struct {
	MinPlayers int         `json:"minPlayers"`
	Roles      []RoleCount `json:"roles"`
}

// Rules 是一局游戏引用的全部静态定义，纯数据
// 行为（资格判断、结算）通过 strategy 表按 ActionKind 查找
type Rules struct {
	Roles      map[string]*RoleDefinition
	Items      map[string]*ItemDefinition
	Actions    map[ActionKind]*ActionDefinition
	Events     map[EventKind]*EventDefinition
	EventOrder []EventKind
	MinRoles   []RoleQuota
	BaseRole   string

	TiebreakDepth int
}

func DefaultRules() *Rules {
	roles := []*RoleDefinition{
		{Name: ROLE_VILLAGER, Team: TEAM_TOWN, Color: "#8fbc8f"},
		{
			Name: ROLE_MURDERER, Team: TEAM_MAFIA, Color: "#b22222",
			Grants: []Grant{{Action: ACTION_KILL, Events: []EventKind{EVENT_MURDER}}},
		},
		{
			Name: ROLE_DETECTIVE, Team: TEAM_TOWN, Color: "#4682b4",
			Grants: []Grant{{Action: ACTION_INVESTIGATE, Events: []EventKind{EVENT_INVESTIGATE}}},
		},
		{
			Name: ROLE_DOCTOR, Team: TEAM_TOWN, Color: "#3cb371",
			Grants: []Grant{{Action: ACTION_PROTECT, Events: []EventKind{EVENT_PROTECT}}},
		},
		{
			Name: ROLE_GOVERNOR, Team: TEAM_TOWN, Color: "#daa520",
			Grants: []Grant{{Action: ACTION_PARDON, Events: []EventKind{EVENT_PARDON}}},
		},
		{
			Name: ROLE_SMITH, Team: TEAM_TOWN, Color: "#a0522d",
			Grants: []Grant{{Action: ACTION_ARM, Events: []EventKind{EVENT_ARM}}},
		},
	}

	items := []*ItemDefinition{
		{Name: ITEM_GUN, Grants: []Grant{{Action: ACTION_SHOOT, Events: []EventKind{EVENT_SHOOT}}}},
		{Name: ITEM_BADGE, Grants: []Grant{{Action: ACTION_INVESTIGATE, Events: []EventKind{EVENT_INVESTIGATE}}}},
	}

	actions := []*ActionDefinition{
		{Kind: ACTION_VOTE, Mode: MODE_VOTE, Input: INPUT_PLAYER, Outcome: EFFECT_KILL},
		{Kind: ACTION_KILL, Mode: MODE_VOTE, Input: INPUT_PLAYER, Outcome: EFFECT_KILL},
		{Kind: ACTION_PROTECT, Mode: MODE_INDIVIDUAL, Input: INPUT_PLAYER, Max: UsageLimit{PerPhase: 1}},
		{Kind: ACTION_INVESTIGATE, Mode: MODE_INDIVIDUAL, Input: INPUT_PLAYER, Max: UsageLimit{PerPhase: 1}},
		{Kind: ACTION_PARDON, Mode: MODE_INDIVIDUAL, Input: INPUT_PLAYER, Max: UsageLimit{PerPhase: 1, PerGame: 1}},
		{Kind: ACTION_SHOOT, Mode: MODE_INDIVIDUAL, Input: INPUT_PLAYER, Max: UsageLimit{PerGame: 1}},
		{
			Kind: ACTION_ARM, Mode: MODE_INDIVIDUAL, Input: INPUT_PLAYER,
			Max: UsageLimit{PerPhase: 1, PerGame: 2},
			Steps: []StepDefinition{
				{Name: "recipient", Input: INPUT_PLAYER},
				{Name: "item", Input: INPUT_OPTION, Options: []string{ITEM_GUN, ITEM_BADGE}},
			},
		},
	}

	events := []*EventDefinition{
		{
			Kind: EVENT_LYNCH, Phases: []Phase{PHASE_DAY},
			Everyone: []ActionKind{ACTION_VOTE}, Actions: []ActionKind{ACTION_VOTE},
			TiePolicy: TIE_TIEBREAKER,
		},
		{Kind: EVENT_PARDON, Phases: []Phase{PHASE_DAY}, Actions: []ActionKind{ACTION_PARDON}, TiePolicy: TIE_AFFECT_NONE},
		{Kind: EVENT_SHOOT, Phases: []Phase{PHASE_DAY}, Actions: []ActionKind{ACTION_SHOOT}, TiePolicy: TIE_AFFECT_NONE},
		{Kind: EVENT_MURDER, Phases: []Phase{PHASE_NIGHT}, AutoStart: true, Actions: []ActionKind{ACTION_KILL}, TiePolicy: TIE_AFFECT_NONE},
		{Kind: EVENT_PROTECT, Phases: []Phase{PHASE_NIGHT}, AutoStart: true, Actions: []ActionKind{ACTION_PROTECT}, TiePolicy: TIE_AFFECT_NONE},
		{Kind: EVENT_INVESTIGATE, Phases: []Phase{PHASE_NIGHT}, AutoStart: true, Actions: []ActionKind{ACTION_INVESTIGATE}, TiePolicy: TIE_AFFECT_NONE},
		{Kind: EVENT_ARM, Phases: []Phase{PHASE_NIGHT}, AutoStart: true, Actions: []ActionKind{ACTION_ARM}, TiePolicy: TIE_AFFECT_NONE},
	}

	rules := &Rules{
		Roles:   make(map[string]*RoleDefinition, len(roles)),
		Items:   make(map[string]*ItemDefinition, len(items)),
		Actions: make(map[ActionKind]*ActionDefinition, len(actions)),
		Events:  make(map[EventKind]*EventDefinition, len(events)),
		MinRoles: []RoleQuota{
			{MinPlayers: 3, Roles: []RoleCount{{ROLE_MURDERER, 1}}},
			{MinPlayers: 5, Roles: []RoleCount{{ROLE_MURDERER, 1}, {ROLE_DETECTIVE, 1}}},
			{MinPlayers: 7, Roles: []RoleCount{{ROLE_MURDERER, 1}, {ROLE_DETECTIVE, 1}, {ROLE_DOCTOR, 1}}},
			{MinPlayers: 9, Roles: []RoleCount{
				{ROLE_MURDERER, 1}, {ROLE_DETECTIVE, 1}, {ROLE_DOCTOR, 1}, {ROLE_GOVERNOR, 1}, {ROLE_SMITH, 1},
			}},
			{MinPlayers: 11, Roles: []RoleCount{
				{ROLE_MURDERER, 2}, {ROLE_DETECTIVE, 1}, {ROLE_DOCTOR, 1}, {ROLE_GOVERNOR, 1}, {ROLE_SMITH, 1},
			}},
		},
		BaseRole:      ROLE_VILLAGER,
		TiebreakDepth: 3,
	}

	for _, r := range roles {
		rules.Roles[r.Name] = r
	}
	for _, it := range items {
		rules.Items[it.Name] = it
	}
	for _, a := range actions {
		rules.Actions[a.Kind] = a
	}
	for _, e := range events {
		rules.Events[e.Kind] = e
		rules.EventOrder = append(rules.EventOrder, e.Kind)
	}

	return rules
}

// QuotaFor 返回给定人数下的最低角色配置，人数不足时返回 nil
func (r *Rules) QuotaFor(playerCount int) []RoleCount {
	var quota []RoleCount
	for _, q := range r.MinRoles {
		if playerCount >= q.MinPlayers {
			quota = q.Roles
		}
	}

	return quota
}

func (r *Rules) Validate() error {
	checkGrants := func(owner string, grants []Grant) error {
		for _, g := range grants {
			if _, ok := r.Actions[g.Action]; !ok {
				return configErrorf("%s 引用了未定义的行动 %s", owner, g.Action)
			}
			for _, ev := range g.Events {
				if _, ok := r.Events[ev]; !ok {
					return configErrorf("%s 引用了未定义的事件 %s", owner, ev)
				}
			}
		}
		return nil
	}

	if r.TiebreakDepth < 0 {
		return configErrorf("加赛轮数上限不能为负数: %d", r.TiebreakDepth)
	}

	if _, ok := r.Roles[r.BaseRole]; !ok {
		return configErrorf("基础角色 %s 未定义", r.BaseRole)
	}

	for name, role := range r.Roles {
		if err := checkGrants("角色 "+name, role.Grants); err != nil {
			return err
		}
	}

	for name, item := range r.Items {
		if err := checkGrants("物品 "+name, item.Grants); err != nil {
			return err
		}
	}

	for kind, action := range r.Actions {
		if _, ok := eligibilityTable[kind]; !ok {
			return configErrorf("行动 %s 缺少资格判断", kind)
		}

		switch action.Mode {
		case MODE_VOTE:
			if action.Outcome == "" {
				return configErrorf("投票型行动 %s 缺少结算效果", kind)
			}
		case MODE_INDIVIDUAL:
			if _, ok := individualResolvers[kind]; !ok {
				return configErrorf("行动 %s 缺少结算函数", kind)
			}
		default:
			return configErrorf("行动 %s 的结算模式 %q 无效", kind, action.Mode)
		}

		if action.IsMultiStep() {
			if _, ok := stepResolvers[kind]; !ok {
				return configErrorf("多步行动 %s 缺少步骤函数", kind)
			}
		}
	}

	for kind, event := range r.Events {
		if len(event.Actions) == 0 {
			return configErrorf("事件 %s 没有任何行动", kind)
		}
		for _, a := range append(slices.Clone(event.Everyone), event.Actions...) {
			if _, ok := r.Actions[a]; !ok {
				return configErrorf("事件 %s 引用了未定义的行动 %s", kind, a)
			}
		}
		for _, p := range event.Phases {
			if !slices.Contains(PhaseList, p) {
				return configErrorf("事件 %s 引用了未定义的阶段 %s", kind, p)
			}
		}
		switch event.TiePolicy {
		case TIE_AFFECT_NONE, TIE_AFFECT_ALL, TIE_TIEBREAKER:
		default:
			return configErrorf("事件 %s 的平票策略 %q 无效", kind, event.TiePolicy)
		}
	}

	for _, q := range r.MinRoles {
		for _, rc := range q.Roles {
			if _, ok := r.Roles[rc.Role]; !ok {
				return configErrorf("角色配额引用了未定义的角色 %s", rc.Role)
			}
		}
	}

	return nil
}
