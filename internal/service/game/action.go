package game

// grantingEvent 返回授予该玩家该行动的第一个收集中事件
func (g *Game) grantingEvent(playerID int, kind ActionKind) *Event {
	for _, ev := range g.collectingEvents() {
		if ev.HasGrant(playerID, kind) {
			return ev
		}
	}

	return nil
}

// 校验玩家和行动本身，失败时返回 ValidationError
func (g *Game) actor(playerID int, kind ActionKind) (*Player, *ActionDefinition, error) {
	def, ok := g.Rules.Actions[kind]
	if !ok {
		return nil, nil, validationErrorf("行动 %s 不存在", kind)
	}

	p, err := g.Player(playerID)
	if err != nil {
		return nil, nil, err
	}

	if p.IsDead {
		return nil, nil, validationErrorf("玩家 %d 已死亡，不能行动", playerID)
	}

	return p, def, nil
}

func (g *Game) usageExhausted(def *ActionDefinition, as *ActionState) bool {
	if def.Max.PerPhase > 0 && as.usesIn(g.PhaseIndex) >= def.Max.PerPhase {
		return true
	}
	if def.Max.PerGame > 0 && as.GameUses >= def.Max.PerGame {
		return true
	}

	return false
}

// CurrentStep 返回多步行动当前暴露给玩家的步骤，单步或已完成时返回 nil
func (g *Game) CurrentStep(p *Player, kind ActionKind) *StepDefinition {
	def, ok := g.Rules.Actions[kind]
	if !ok || !def.IsMultiStep() {
		return nil
	}

	as, ok := p.Actions[kind]
	if !ok {
		return &def.Steps[0]
	}
	if as.StepIndex >= len(def.Steps) {
		return nil
	}

	return &def.Steps[as.StepIndex]
}

// selectionValid 判断 value 对玩家当前的输入是否合法
func (g *Game) selectionValid(p *Player, kind ActionKind, ev *Event, value int) bool {
	if step := g.CurrentStep(p, kind); step != nil && step.Input == INPUT_OPTION {
		return value >= 0 && value < len(step.Options)
	}

	if !ev.TargetAllowed(value) {
		return false
	}

	target, ok := g.Players[value]
	if !ok {
		return false
	}

	return eligibilityTable[kind](g, p, target)
}

// Select 记录玩家的选择并重置确认状态，不计入使用次数
func (g *Game) Select(playerID int, kind ActionKind, value int) error {
	p, def, err := g.actor(playerID, kind)
	if err != nil {
		return err
	}

	ev := g.grantingEvent(playerID, kind)
	if ev == nil {
		return validationErrorf("玩家 %d 当前没有 %s 的授权", playerID, kind)
	}

	as := p.action(kind)
	if as.EventID != ev.ID {
		as.resetProgress()
	}

	if g.usageExhausted(def, as) {
		return stateErrorf("玩家 %d 的 %s 使用次数已用尽", playerID, kind)
	}

	if as.Completed {
		return stateErrorf("玩家 %d 已经完成了 %s", playerID, kind)
	}

	if !g.selectionValid(p, kind, ev, value) {
		return stateErrorf("玩家 %d 不能对 %d 执行 %s", playerID, value, kind)
	}

	if as.Confirmed {
		ev.withdraw(kind, playerID)
	}

	as.EventID = ev.ID
	as.Selection = &value
	as.Confirmed = false

	return nil
}

// Confirm 确认当前选择。单步行动直接记为事件输入；
// 多步行动执行当前步骤，全部步骤完成后才记为事件输入
func (g *Game) Confirm(playerID int, kind ActionKind) error {
	p, def, err := g.actor(playerID, kind)
	if err != nil {
		return err
	}

	as, ok := p.Actions[kind]
	if !ok || as.Selection == nil {
		return stateErrorf("玩家 %d 没有待确认的 %s 选择", playerID, kind)
	}

	ev, err := g.Event(as.EventID)
	if err != nil {
		return err
	}

	if ev.Status != EVENT_STATUS_COLLECTING {
		as.resetProgress()
		return stateErrorf("事件 %s 已经结束", ev.ID)
	}

	if !ev.HasGrant(playerID, kind) {
		return validationErrorf("玩家 %d 当前没有 %s 的授权", playerID, kind)
	}

	value := *as.Selection

	if !def.IsMultiStep() {
		as.Confirmed = true
		ev.record(kind, playerID, value)
		return nil
	}

	if as.StepData == nil {
		as.StepData = make(map[string]int)
	}

	step := def.Steps[as.StepIndex]
	if !stepResolvers[kind](g, p, as.StepIndex, value, as.StepData) {
		as.clearSelection()
		return stateErrorf("玩家 %d 的 %s 步骤 %s 未通过", playerID, kind, step.Name)
	}

	as.StepIndex++
	as.clearSelection()

	if as.StepIndex >= len(def.Steps) {
		as.Completed = true
		as.Confirmed = true
		ev.record(kind, playerID, as.StepData[def.Steps[0].Name])
	}

	return nil
}

// Interrupt 撤回玩家在收集中事件上的选择和确认，多步行动回到第一步
func (g *Game) Interrupt(playerID int, kind ActionKind) error {
	p, _, err := g.actor(playerID, kind)
	if err != nil {
		return err
	}

	as, ok := p.Actions[kind]
	if !ok || as.EventID == "" {
		return stateErrorf("玩家 %d 没有进行中的 %s", playerID, kind)
	}

	if ev, ok := g.Events[as.EventID]; ok && ev.Status == EVENT_STATUS_COLLECTING {
		ev.withdraw(kind, playerID)
	}

	as.resetProgress()

	return nil
}
