package game

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Publisher 是外部的发布订阅总线
type Publisher interface {
	Subscribe(channel string, ch chan ResponseWrapper)
	Publish(channel string, resp ResponseWrapper)
}

func PlayerChannel(id int) string {
	return RESP_PLAYER_UPDATE_PREFIX + strconv.Itoa(id)
}

// ChannelBroadcaster 把一次快照拆分发布到各个频道
type ChannelBroadcaster struct {
	Pub Publisher
}

func (cb ChannelBroadcaster) Broadcast(snap Snapshot) {
	cb.Pub.Publish(RESP_PLAYERS_UPDATE, WrapResponse(RESP_PLAYERS_UPDATE, snap.Players))
	cb.Pub.Publish(RESP_GAME_META_UPDATE, WrapResponse(RESP_GAME_META_UPDATE, snap.Meta))
	cb.Pub.Publish(RESP_LOG_UPDATE, WrapResponse(RESP_LOG_UPDATE, snap.History))

	for id, p := range snap.PrivatePlayers {
		channel := PlayerChannel(id)
		cb.Pub.Publish(channel, WrapResponse(channel, p))
	}
}

// Envelope 携带请求和发起请求的连接的响应通道
type Envelope struct {
	Req    RequestWrapper
	RespCh chan ResponseWrapper
}

// GameMachine 持有一局游戏，在单个协程中逐条处理请求
// 一条请求的校验、修改、广播全部完成后才会处理下一条
type GameMachine struct {
	ctx *GameContext
	pub Publisher

	// 所有连接的请求汇总的通道
	reqCh chan Envelope
	// 结束通道，用于通知状态机退出事件循环
	doneCh   chan struct{}
	stopOnce sync.Once

	createdAt  time.Time
	lastActive atomic.Int64
}

func NewGameMachine(ctx *GameContext, pub Publisher, bufSize int) *GameMachine {
	if bufSize <= 0 {
		bufSize = 64
	}

	gm := &GameMachine{
		ctx:       ctx,
		pub:       pub,
		reqCh:     make(chan Envelope, bufSize),
		doneCh:    make(chan struct{}),
		createdAt: time.Now(),
	}
	gm.touch()

	return gm
}

func (gm *GameMachine) GetReqCh() chan<- Envelope {
	return gm.reqCh
}

func (gm *GameMachine) Start() {
	for {
		select {
		case env := <-gm.reqCh:
			zap.L().Debug(
				"接收到客户端请求",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("request_type", env.Req.ReqType),
			)

			gm.touch()

			if err := gm.handle(env); err != nil {
				zap.L().Debug(
					"处理请求失败",
					zap.String("room_id", gm.ctx.RoomID),
					zap.String("request_type", env.Req.ReqType),
					zap.Error(err),
				)

				reply(env.RespCh, WrapErrResponse(err.Error()))
			}

		case <-gm.doneCh:
			zap.L().Info(
				"收到退出信号，结束游戏状态机",
				zap.String("room_id", gm.ctx.RoomID),
			)
			return
		}
	}
}

func (gm *GameMachine) Stop() {
	gm.stopOnce.Do(func() {
		close(gm.doneCh)
	})
}

func (gm *GameMachine) touch() {
	gm.lastActive.Store(time.Now().UnixNano())
}

func (gm *GameMachine) IdleFor() time.Duration {
	return time.Since(time.Unix(0, gm.lastActive.Load()))
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

// handle 处理单条请求。处理过程中的 panic 在这里恢复，
// 只影响当前这条请求，不会终止状态机
func (gm *GameMachine) handle(env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(
				"处理请求时发生 panic",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("request_type", env.Req.ReqType),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = errors.New("服务器内部错误")
		}
	}()

	return gm.dispatch(env)
}

func (gm *GameMachine) dispatch(env Envelope) error {
	req := env.Req
	gc := gm.ctx

	switch req.ReqType {
	case REQ_SYNC:
		gm.sync(env.RespCh)
		return nil

	case REQ_START_GAME:
		return gc.StartGame()
	case REQ_NEXT_PHASE:
		return gc.NextPhase()
	case REQ_RESOLVE_PHASE:
		return gc.ResolvePhase()
	case REQ_RESOLVE_DEATHS:
		return gc.ResolveDeaths()
	case REQ_START_ALL_EVENTS:
		return gc.StartAllEvents()
	case REQ_RESOLVE_ALL_EVENTS:
		return gc.ResolveAllEvents()
	case REQ_END_GAME:
		return gc.EndGame()
	}

	if r := TryUnwrapRegisterPlayerRequest(req); r != nil {
		// 先订阅私有频道，注册后的广播才能送达
		if env.RespCh != nil {
			gm.pub.Subscribe(PlayerChannel(r.ID), env.RespCh)
		}
		return gc.RegisterPlayer(r.ID, r.Name)
	}

	if r := TryUnwrapUpdatePlayerNameRequest(req); r != nil {
		return gc.UpdatePlayerName(r.ID, r.Name)
	}

	if r := TryUnwrapPlayerSelectRequest(req); r != nil {
		return gc.Select(r.PlayerID, r.ActionName, r.Value)
	}

	if r := TryUnwrapPlayerActionRequest(req); r != nil {
		if req.ReqType == REQ_PLAYER_INTERRUPT {
			return gc.Interrupt(r.PlayerID, r.ActionName)
		}
		return gc.Confirm(r.PlayerID, r.ActionName)
	}

	if r := TryUnwrapSetPhaseRequest(req); r != nil {
		return gc.SetPhase(r.Phase)
	}

	if r := TryUnwrapPlayerTargetRequest(req); r != nil {
		if req.ReqType == REQ_REVIVE_PLAYER {
			return gc.RevivePlayer(r.PlayerID)
		}
		return gc.KillPlayer(r.PlayerID)
	}

	if r := TryUnwrapAssignRoleRequest(req); r != nil {
		return gc.AssignRole(r.PlayerID, r.Role)
	}

	if r := TryUnwrapStartEventRequest(req); r != nil {
		_, err := gc.StartEvent(r.EventName, r.InitiatedBy)
		return err
	}

	if r := TryUnwrapEventIDRequest(req); r != nil {
		if req.ReqType == REQ_CLEAR_EVENT {
			return gc.ClearEvent(r.EventID)
		}
		return gc.ResolveEvent(r.EventID)
	}

	if r := TryUnwrapHostControlRequest(req); r != nil {
		gm.pub.Publish(RESP_SLIDES_UPDATE, WrapResponse(RESP_SLIDES_UPDATE, r))
		return nil
	}

	return &ValidationError{Msg: "无法处理请求：未知的请求类型或请求格式错误 " + req.ReqType}
}

// sync 只向发起请求的连接补发公共状态
func (gm *GameMachine) sync(respCh chan ResponseWrapper) {
	snap := gm.ctx.Snapshot()

	reply(respCh, WrapResponse(RESP_PLAYERS_UPDATE, snap.Players))
	reply(respCh, WrapResponse(RESP_GAME_META_UPDATE, snap.Meta))
	reply(respCh, WrapResponse(RESP_LOG_UPDATE, snap.History))
}

func reply(respCh chan ResponseWrapper, resp ResponseWrapper) {
	if respCh == nil {
		return
	}

	select {
	case respCh <- resp:
	default:
		zap.L().Warn(
			"发送单播响应失败：响应通道已满",
			zap.String("response_type", resp.RespType),
		)
	}
}
