package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Broadcaster 接收每次成功修改后的完整状态快照
type Broadcaster interface {
	Broadcast(snap Snapshot)
}

type Option func(gc *GameContext)

// WithRoleShuffle 在分配角色前打乱玩家顺序，不设置时按 ID 升序分配
func WithRoleShuffle(shuffle func(ids []int)) Option {
	return func(gc *GameContext) {
		gc.shuffle = shuffle
	}
}

// WithAutoEnd 在每次死亡结算后检查胜负
func WithAutoEnd(enabled bool) Option {
	return func(gc *GameContext) {
		gc.autoEnd = enabled
	}
}

// GameContext 是一局游戏的编排入口，独占 Game 的所有权
// 所有方法都必须在同一个协程里串行调用（见 GameMachine）
// 成功的修改操作恰好广播一次，失败的操作不修改状态也不广播
type GameContext struct {
	RoomID string

	game        *Game
	applier     *EffectApplier
	broadcaster Broadcaster

	shuffle func(ids []int)
	autoEnd bool
}

func NewGameContext(roomID string, rules *Rules, broadcaster Broadcaster, opts ...Option) *GameContext {
	g := NewGame(rules)

	gc := &GameContext{
		RoomID:      roomID,
		game:        g,
		applier:     NewEffectApplier(g),
		broadcaster: broadcaster,
	}

	for _, opt := range opts {
		opt(gc)
	}

	return gc
}

func (gc *GameContext) Snapshot() Snapshot {
	return gc.game.Snapshot()
}

func (gc *GameContext) broadcast() {
	if gc.broadcaster == nil {
		return
	}

	gc.broadcaster.Broadcast(gc.game.Snapshot())
}

func (gc *GameContext) requireInProgress() error {
	if !gc.game.GameStarted {
		return stateErrorf("游戏尚未开始")
	}
	if gc.game.GameOver {
		return stateErrorf("游戏已经结束")
	}

	return nil
}

func (gc *GameContext) RegisterPlayer(id int, name string) error {
	g := gc.game

	if p, ok := g.Players[id]; ok {
		// 重连：不修改状态，但需要把当前状态推给新连接
		zap.L().Debug(
			"玩家重新连接",
			zap.String("room_id", gc.RoomID),
			zap.Int("player_id", p.ID),
		)
		gc.broadcast()
		return nil
	}

	if g.GameStarted {
		return stateErrorf("游戏已经开始，玩家 %d 无法加入", id)
	}

	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Player %d", id)
	}

	g.Players[id] = NewPlayer(id, name)

	zap.L().Info(
		"玩家加入",
		zap.String("room_id", gc.RoomID),
		zap.Int("player_id", id),
		zap.String("player_name", name),
	)

	gc.broadcast()
	return nil
}

func (gc *GameContext) UpdatePlayerName(id int, name string) error {
	p, err := gc.game.Player(id)
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return validationErrorf("玩家名称不能为空")
	}

	p.Name = name

	gc.broadcast()
	return nil
}

// StartGame 按人数查表分配最低角色配置，其余玩家为基础角色，然后进入第一个阶段
func (gc *GameContext) StartGame() error {
	g := gc.game

	if g.GameStarted {
		return stateErrorf("游戏已经开始")
	}

	quota := g.Rules.QuotaFor(len(g.Players))
	if quota == nil {
		return stateErrorf("玩家数量不足，当前 %d 人", len(g.Players))
	}

	ids := g.PlayerIDs()
	if gc.shuffle != nil {
		gc.shuffle(ids)
	}

	// 开局前手动指定的角色保留，并计入配额
	assigned := make(map[string]int)
	for _, id := range ids {
		if role := g.Players[id].RoleName(); role != "" {
			assigned[role]++
		}
	}

	roles := make(map[int]string, len(ids))
	for _, rc := range quota {
		need := rc.Count - assigned[rc.Role]
		for _, id := range ids {
			if need <= 0 {
				break
			}
			if g.Players[id].Role != nil || roles[id] != "" {
				continue
			}

			roles[id] = rc.Role
			need--
		}
	}

	for _, id := range ids {
		if g.Players[id].Role == nil && roles[id] == "" {
			roles[id] = g.Rules.BaseRole
		}
	}

	for _, id := range g.PlayerIDs() {
		role, ok := roles[id]
		if !ok {
			continue
		}

		if err := gc.applier.Apply(Effect{Type: EFFECT_ASSIGN_ROLE, Target: id, Payload: role}); err != nil {
			return err
		}
	}

	g.GameStarted = true
	g.PhaseIndex = 0
	g.Pending = NewPending()
	g.refresh()

	g.appendHistory(HistoryEntry{Type: LOG_GAME_STARTED, Detail: fmt.Sprintf("%d players", len(ids))})
	gc.autoStartEvents()

	zap.L().Info(
		"游戏开始",
		zap.String("room_id", gc.RoomID),
		zap.Int("player_count", len(ids)),
		zap.String("phase", string(g.Phase())),
	)

	gc.broadcast()
	return nil
}

// SetPhase 一直前进到指定阶段，途经的每个阶段都会正常结算
func (gc *GameContext) SetPhase(phase Phase) error {
	if err := gc.requireInProgress(); err != nil {
		return err
	}

	steps, ok := stepsUntil(gc.game.PhaseIndex, phase)
	if !ok {
		return validationErrorf("阶段 %s 不存在", phase)
	}
	if steps == 0 {
		return stateErrorf("当前已经是 %s 阶段", phase)
	}

	for range steps {
		if !gc.transition() {
			break
		}
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) NextPhase() error {
	if err := gc.requireInProgress(); err != nil {
		return err
	}

	gc.transition()

	gc.broadcast()
	return nil
}

// ResolvePhase 结算当前阶段所有事件和死亡，但不切换阶段
func (gc *GameContext) ResolvePhase() error {
	if err := gc.requireInProgress(); err != nil {
		return err
	}

	gc.resolvePhase()

	gc.broadcast()
	return nil
}

func (gc *GameContext) ResolveDeaths() error {
	if err := gc.requireInProgress(); err != nil {
		return err
	}

	gc.resolveDeaths()

	gc.broadcast()
	return nil
}

// transition 结算当前阶段并进入下一阶段，游戏因此结束时返回 false
func (gc *GameContext) transition() bool {
	g := gc.game

	gc.resolvePhase()
	if g.GameOver {
		return false
	}

	gc.clearActiveEvents()
	g.advancePhase()

	g.appendHistory(HistoryEntry{Type: LOG_PHASE_CHANGED, Detail: string(g.Phase())})

	zap.L().Info(
		"阶段切换",
		zap.String("room_id", gc.RoomID),
		zap.String("phase", string(g.Phase())),
		zap.Int("day", g.DayCount()),
	)

	gc.autoStartEvents()
	return true
}

// resolvePhase 结算所有收集中的事件（包括结算过程中产生的加赛），再结算死亡
func (gc *GameContext) resolvePhase() {
	g := gc.game

	// 每一轮加赛深度加一，深度有上限，所以这里的轮数也有上限
	for round := 0; round <= g.Rules.TiebreakDepth+1; round++ {
		collecting := g.collectingEvents()
		if len(collecting) == 0 {
			break
		}

		for _, ev := range collecting {
			if err := gc.resolveAndCommit(ev); err != nil {
				zap.L().Warn(
					"阶段结算时事件结算失败",
					zap.String("room_id", gc.RoomID),
					zap.String("event_id", ev.ID),
					zap.Error(err),
				)
			}
		}
	}

	gc.resolveDeaths()
}

// resolveDeaths 提交待处决名单上的死亡，被保护或赦免的玩家早已移出名单
func (gc *GameContext) resolveDeaths() {
	g := gc.game

	kills := g.Pending.Kills
	g.Pending.Kills = nil

	for _, e := range kills {
		e.Deferred = false
		gc.applyEffect(e)
	}

	gc.checkWin()
}

func (gc *GameContext) resolveAndCommit(ev *Event) error {
	g := gc.game

	effects, err := g.resolve(ev)
	if err != nil {
		return err
	}

	g.appendHistory(HistoryEntry{Type: LOG_EVENT_RESOLVED, EventID: ev.ID, Detail: string(ev.Kind)})
	if ev.ChildID != "" {
		g.appendHistory(HistoryEntry{Type: LOG_TIEBREAKER, EventID: ev.ChildID, Detail: string(ev.Kind)})
	}

	zap.L().Info(
		"事件结算",
		zap.String("room_id", gc.RoomID),
		zap.String("event_id", ev.ID),
		zap.String("event", string(ev.Kind)),
		zap.Int("effects", len(effects)),
		zap.String("child_id", ev.ChildID),
	)

	gc.commit(effects)
	return nil
}

// commit 把结算产生的效果分发出去：
// 延迟的 KILL 进入待处决名单，PROTECT/PARDON 作用于待处决名单，其余交给 EffectApplier
func (gc *GameContext) commit(effects []Effect) {
	g := gc.game
	immediateKill := false

	for _, e := range effects {
		switch {
		case e.Type == EFFECT_KILL && e.Deferred:
			if !g.Pending.AddKill(e) {
				if _, ok := g.Pending.Spared[e.Target]; ok {
					g.logTarget(LOG_SPARED, e.Target, e.EventID, "")
				}
				zap.L().Debug(
					"待处决目标已被保护或已在名单中",
					zap.String("room_id", gc.RoomID),
					zap.Int("target", e.Target),
				)
			}

		case e.Type == EFFECT_PROTECT || e.Type == EFFECT_PARDON:
			// 只有确实撤下了待处决目标才公开记录，不写明来源
			if g.Pending.Spare(e.Target, e.Type) {
				g.logTarget(LOG_SPARED, e.Target, "", "")
			}

		default:
			if e.Type == EFFECT_KILL {
				immediateKill = true
			}
			gc.applyEffect(e)
		}
	}

	if immediateKill {
		gc.checkWin()
	}
}

// applyEffect 提交单个效果，失败只记录日志
func (gc *GameContext) applyEffect(e Effect) {
	g := gc.game

	wasDead := false
	if p, ok := g.Players[e.Target]; ok {
		wasDead = p.IsDead
	}

	if err := gc.applier.Apply(e); err != nil {
		zap.L().Error(
			"效果提交失败",
			zap.String("room_id", gc.RoomID),
			zap.String("type", string(e.Type)),
			zap.Int("target", e.Target),
			zap.Error(err),
		)
		return
	}

	switch e.Type {
	case EFFECT_KILL:
		if !wasDead {
			g.logTarget(LOG_PLAYER_DIED, e.Target, e.EventID, "")
		}
	case EFFECT_GIVE_ITEM:
		g.logTarget(LOG_ITEM_GIVEN, e.Target, e.EventID, e.Payload)
	case EFFECT_ASSIGN_ROLE:
		g.logTarget(LOG_ROLE_ASSIGNED, e.Target, e.EventID, "")
	}
}

// checkWin：没有存活的黑方时好人胜利，黑方人数不少于好人时黑方胜利
func (gc *GameContext) checkWin() {
	g := gc.game

	if !gc.autoEnd || !g.GameStarted || g.GameOver {
		return
	}

	counts := g.livingByTeam()
	mafia := counts[TEAM_MAFIA]
	town := len(g.LivingPlayers()) - mafia

	switch {
	case mafia == 0:
		gc.finish(TEAM_TOWN)
	case mafia >= town:
		gc.finish(TEAM_MAFIA)
	}
}

func (gc *GameContext) finish(winner Team) {
	g := gc.game

	g.GameOver = true
	g.Winner = winner
	gc.clearActiveEvents()

	g.appendHistory(HistoryEntry{Type: LOG_GAME_ENDED, Detail: string(winner)})

	zap.L().Info(
		"游戏结束",
		zap.String("room_id", gc.RoomID),
		zap.String("winner", string(winner)),
	)
}

func (gc *GameContext) autoStartEvents() {
	g := gc.game

	for _, kind := range g.AvailableEvents() {
		if g.Rules.Events[kind].AutoStart {
			ev := g.openEvent(kind, INITIATOR_SYSTEM, nil, nil)
			g.appendHistory(HistoryEntry{Type: LOG_EVENT_STARTED, EventID: ev.ID, Detail: string(kind)})
		}
	}
}

func (gc *GameContext) clearActiveEvents() {
	for _, ev := range gc.game.activeEvents() {
		gc.clear(ev)
	}
}

// clear 将事件移出活跃集合，收集中的事件上的选择一并作废
func (gc *GameContext) clear(ev *Event) {
	g := gc.game

	if ev.Status == EVENT_STATUS_COLLECTING {
		for actorID := range ev.Grants {
			p, ok := g.Players[actorID]
			if !ok {
				continue
			}

			for _, as := range p.Actions {
				if as.EventID == ev.ID {
					as.resetProgress()
				}
			}
		}
	}

	ev.Status = EVENT_STATUS_CLEARED
	g.removeActive(ev.ID)
}

func (gc *GameContext) hasCollecting(kind EventKind) bool {
	for _, ev := range gc.game.collectingEvents() {
		if ev.Kind == kind {
			return true
		}
	}

	return false
}

func (gc *GameContext) StartEvent(kind EventKind, initiatedBy string) (*Event, error) {
	g := gc.game

	if err := gc.requireInProgress(); err != nil {
		return nil, err
	}

	def, ok := g.Rules.Events[kind]
	if !ok {
		return nil, validationErrorf("事件 %s 不存在", kind)
	}

	if !def.AllowedIn(g.Phase()) {
		return nil, stateErrorf("事件 %s 不能在 %s 阶段开始", kind, g.Phase())
	}

	if gc.hasCollecting(kind) {
		return nil, stateErrorf("事件 %s 已经在进行中", kind)
	}

	if initiatedBy == "" {
		initiatedBy = INITIATOR_HOST
	}

	ev := g.openEvent(kind, initiatedBy, nil, nil)
	g.appendHistory(HistoryEntry{Type: LOG_EVENT_STARTED, EventID: ev.ID, Detail: string(kind)})

	zap.L().Info(
		"事件开始",
		zap.String("room_id", gc.RoomID),
		zap.String("event_id", ev.ID),
		zap.String("event", string(kind)),
		zap.String("initiated_by", initiatedBy),
	)

	gc.broadcast()
	return ev, nil
}

func (gc *GameContext) ResolveEvent(id string) error {
	ev, err := gc.game.Event(id)
	if err != nil {
		return err
	}

	if err := gc.resolveAndCommit(ev); err != nil {
		return err
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) StartAllEvents() error {
	g := gc.game

	if err := gc.requireInProgress(); err != nil {
		return err
	}

	started := 0
	for _, kind := range g.AvailableEvents() {
		if gc.hasCollecting(kind) {
			continue
		}

		ev := g.openEvent(kind, INITIATOR_HOST, nil, nil)
		g.appendHistory(HistoryEntry{Type: LOG_EVENT_STARTED, EventID: ev.ID, Detail: string(kind)})
		started++
	}

	if started == 0 {
		return stateErrorf("当前阶段没有可开始的事件")
	}

	gc.broadcast()
	return nil
}

// ResolveAllEvents 只结算调用时已在收集中的事件，本次产生的加赛保持收集状态
func (gc *GameContext) ResolveAllEvents() error {
	collecting := gc.game.collectingEvents()
	if len(collecting) == 0 {
		return stateErrorf("没有需要结算的事件")
	}

	for _, ev := range collecting {
		if err := gc.resolveAndCommit(ev); err != nil {
			zap.L().Warn(
				"事件结算失败",
				zap.String("room_id", gc.RoomID),
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) ClearEvent(id string) error {
	g := gc.game

	ev, err := g.Event(id)
	if err != nil {
		return err
	}

	if !g.isActive(id) {
		return stateErrorf("事件 %s 不在活跃列表中", id)
	}

	gc.clear(ev)
	g.appendHistory(HistoryEntry{Type: LOG_EVENT_CLEARED, EventID: ev.ID, Detail: string(ev.Kind)})

	gc.broadcast()
	return nil
}

func (gc *GameContext) Select(playerID int, action ActionKind, value int) error {
	if err := gc.game.Select(playerID, action, value); err != nil {
		return err
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) Confirm(playerID int, action ActionKind) error {
	if err := gc.game.Confirm(playerID, action); err != nil {
		return err
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) Interrupt(playerID int, action ActionKind) error {
	if err := gc.game.Interrupt(playerID, action); err != nil {
		return err
	}

	gc.broadcast()
	return nil
}

func (gc *GameContext) KillPlayer(id int) error {
	if _, err := gc.game.Player(id); err != nil {
		return err
	}

	gc.applyEffect(Effect{Type: EFFECT_KILL, Target: id})
	gc.checkWin()

	gc.broadcast()
	return nil
}

func (gc *GameContext) RevivePlayer(id int) error {
	g := gc.game

	p, err := g.Player(id)
	if err != nil {
		return err
	}

	if p.IsAlive() {
		return stateErrorf("玩家 %d 仍然存活", id)
	}

	p.IsDead = false
	p.PhaseDied = -1
	g.refresh()

	g.logTarget(LOG_PLAYER_REVIVED, id, "", "")

	gc.broadcast()
	return nil
}

func (gc *GameContext) AssignRole(id int, role string) error {
	g := gc.game

	if _, err := g.Player(id); err != nil {
		return err
	}

	if _, ok := g.Rules.Roles[role]; !ok {
		return validationErrorf("角色 %s 不存在", role)
	}

	gc.applyEffect(Effect{Type: EFFECT_ASSIGN_ROLE, Target: id, Payload: role})

	gc.broadcast()
	return nil
}

func (gc *GameContext) EndGame() error {
	g := gc.game

	if g.GameOver {
		return stateErrorf("游戏已经结束")
	}

	g.GameOver = true
	gc.clearActiveEvents()

	g.appendHistory(HistoryEntry{Type: LOG_GAME_ENDED})

	zap.L().Info("游戏被主持人结束", zap.String("room_id", gc.RoomID))

	gc.broadcast()
	return nil
}
