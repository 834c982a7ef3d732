package game

import (
	"slices"
	"time"
)

// 玩家对某个行动的选择/确认/使用次数
type ActionState struct {
	EventID   string `json:"eventId,omitempty"`
	Selection *int   `json:"selection"`
	Confirmed bool   `json:"confirmed"`

	PhaseUses int `json:"phaseUses"`
	// PhaseUses 所属的阶段序号，跨阶段时视为 0
	UsesPhase int `json:"-"`
	GameUses  int `json:"gameUses"`

	StepIndex int            `json:"stepIndex"`
	StepData  map[string]int `json:"stepData,omitempty"`
	Completed bool           `json:"completed"`
}

func (as *ActionState) clearSelection() {
	as.Selection = nil
	as.Confirmed = false
}

func (as *ActionState) resetProgress() {
	as.clearSelection()
	as.EventID = ""
	as.StepIndex = 0
	as.StepData = nil
	as.Completed = false
}

func (as *ActionState) usesIn(phaseIndex int) int {
	if as.UsesPhase != phaseIndex {
		return 0
	}

	return as.PhaseUses
}

func (as *ActionState) recordUse(phaseIndex int) {
	if as.UsesPhase != phaseIndex {
		as.UsesPhase = phaseIndex
		as.PhaseUses = 0
	}

	as.PhaseUses++
	as.GameUses++
}

// 调查类行动的私密结果，只推送给行动者本人
type Finding struct {
	EventID    string `json:"eventId"`
	PhaseIndex int    `json:"phaseIndex"`
	Target     int    `json:"target"`
	Team       Team   `json:"team"`
}

type Player struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Role  *RoleDefinition `json:"-"`
	Team  Team            `json:"team"`
	Color string          `json:"color"`

	IsDead bool `json:"isDead"`
	// 存活时为 -1
	PhaseDied int `json:"phaseDied"`

	Inventory map[string]struct{}         `json:"-"`
	Actions   map[ActionKind]*ActionState `json:"actions"`
	Findings  []Finding                   `json:"findings"`
}

func NewPlayer(id int, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		PhaseDied: -1,
		Inventory: make(map[string]struct{}),
		Actions:   make(map[ActionKind]*ActionState),
	}
}

func (p *Player) IsAlive() bool {
	return !p.IsDead
}

func (p *Player) RoleName() string {
	if p.Role == nil {
		return ""
	}

	return p.Role.Name
}

func (p *Player) HasItem(item string) bool {
	_, ok := p.Inventory[item]
	return ok
}

func (p *Player) Items() []string {
	items := make([]string, 0, len(p.Inventory))
	for it := range p.Inventory {
		items = append(items, it)
	}
	slices.Sort(items)

	return items
}

// action 返回玩家某个行动的状态，不存在时创建
func (p *Player) action(kind ActionKind) *ActionState {
	as, ok := p.Actions[kind]
	if !ok {
		as = &ActionState{UsesPhase: -1}
		p.Actions[kind] = as
	}

	return as
}

// 清除所有尚未结算的选择，死亡或换角色时调用
func (p *Player) clearSelections() {
	for _, as := range p.Actions {
		as.resetProgress()
	}
}

// 当前阶段待生效的效果：待处决名单和被赦免/保护的目标
// 投票和谋杀只写入这里，RESOLVE_DEATHS 时才真正生效
type Pending struct {
	Kills  []Effect           `json:"kills"`
	Spared map[int]EffectType `json:"spared"`
}

func NewPending() *Pending {
	return &Pending{
		Spared: make(map[int]EffectType),
	}
}

// AddKill 在目标已被保护或已在名单中时返回 false
func (p *Pending) AddKill(e Effect) bool {
	if _, ok := p.Spared[e.Target]; ok {
		return false
	}
	if p.IsPending(e.Target) {
		return false
	}

	p.Kills = append(p.Kills, e)
	return true
}

// Spare 将目标移出待处决名单，并阻止本阶段内再次加入
// 返回是否真的移除了一条待处决记录
func (p *Pending) Spare(target int, by EffectType) bool {
	p.Spared[target] = by

	before := len(p.Kills)
	p.Kills = slices.DeleteFunc(p.Kills, func(e Effect) bool {
		return e.Target == target
	})

	return len(p.Kills) != before
}

func (p *Pending) IsPending(target int) bool {
	return slices.ContainsFunc(p.Kills, func(e Effect) bool {
		return e.Target == target
	})
}

func (p *Pending) Targets() []int {
	targets := make([]int, 0, len(p.Kills))
	for _, e := range p.Kills {
		targets = append(targets, e.Target)
	}

	return targets
}

// Game 是唯一的权威状态，只能由 GameContext 持有和修改
type Game struct {
	Rules *Rules

	Players map[int]*Player
	// 所有事件（包括已结算和已清除的），用于历史记录
	Events map[string]*Event
	// 按开始顺序排列的活跃事件 ID
	ActiveEvents []string

	PhaseIndex  int
	GameStarted bool
	GameOver    bool
	Winner      Team

	Pending *Pending
	History []HistoryEntry

	caps *CapabilityIndex
	now  func() time.Time
}

func NewGame(rules *Rules) *Game {
	return &Game{
		Rules:   rules,
		Players: make(map[int]*Player),
		Events:  make(map[string]*Event),
		Pending: NewPending(),
		caps:    newCapabilityIndex(),
		now:     time.Now,
	}
}

func (g *Game) Player(id int) (*Player, error) {
	p, ok := g.Players[id]
	if !ok {
		return nil, validationErrorf("玩家 %d 不存在", id)
	}

	return p, nil
}

func (g *Game) PlayerIDs() []int {
	ids := make([]int, 0, len(g.Players))
	for id := range g.Players {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (g *Game) LivingPlayers() []*Player {
	living := make([]*Player, 0, len(g.Players))
	for _, id := range g.PlayerIDs() {
		if p := g.Players[id]; p.IsAlive() {
			living = append(living, p)
		}
	}

	return living
}

func (g *Game) Event(id string) (*Event, error) {
	ev, ok := g.Events[id]
	if !ok {
		return nil, validationErrorf("事件 %s 不存在", id)
	}

	return ev, nil
}

// 活跃事件（包括已结算但尚未清除的），按开始顺序
func (g *Game) activeEvents() []*Event {
	events := make([]*Event, 0, len(g.ActiveEvents))
	for _, id := range g.ActiveEvents {
		events = append(events, g.Events[id])
	}

	return events
}

// 仍在收集输入的活跃事件
func (g *Game) collectingEvents() []*Event {
	events := make([]*Event, 0, len(g.ActiveEvents))
	for _, ev := range g.activeEvents() {
		if ev.Status == EVENT_STATUS_COLLECTING {
			events = append(events, ev)
		}
	}

	return events
}

func (g *Game) isActive(eventID string) bool {
	return slices.Contains(g.ActiveEvents, eventID)
}

func (g *Game) removeActive(eventID string) {
	g.ActiveEvents = slices.DeleteFunc(g.ActiveEvents, func(id string) bool {
		return id == eventID
	})
}

func (g *Game) Metaphase() Metaphase {
	switch {
	case g.GameOver:
		return METAPHASE_POSTGAME
	case g.GameStarted:
		return METAPHASE_IN_PROGRESS
	default:
		return METAPHASE_PREGAME
	}
}

// 按阵营统计存活人数
func (g *Game) livingByTeam() map[Team]int {
	counts := make(map[Team]int)
	for _, p := range g.LivingPlayers() {
		counts[p.Team]++
	}

	return counts
}
