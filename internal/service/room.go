package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"whodunit-be/internal/service/dto"
	"whodunit-be/internal/service/game"

	"go.uber.org/zap"
)

var (
	ErrRoomNotFound = errors.New("房间不存在")
	ErrRoomBusy     = errors.New("房间繁忙，请稍后再试")
	ErrRoomTimeout  = errors.New("房间响应超时")
)

type RoomOptions struct {
	Rules         *game.Rules
	ShuffleRoles  bool
	AutoEnd       bool
	IdleTimeout   time.Duration
	RequestBuffer int
	// 清理协程的检查间隔，为 0 时使用一分钟
	CleanupInterval time.Duration
}

type RoomService struct {
	state *roomServiceState
	opts  RoomOptions
}

type roomServiceState struct {
	mu sync.RWMutex

	// 从房间 ID 到房间的映射
	rooms map[string]*roomEntry

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

func NewRoomService(opts RoomOptions) *RoomService {
	if opts.Rules == nil {
		opts.Rules = game.DefaultRules()
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	state := &roomServiceState{
		rooms:       make(map[string]*roomEntry),
		cleanUpDone: make(chan struct{}),
	}

	rs := &RoomService{
		state: state,
		opts:  opts,
	}

	// 启动一个 goroutine 定期清理闲置的房间
	go rs.startCleanupLoop()

	return rs
}

func (rs *RoomService) startCleanupLoop() {
	ticker := time.NewTicker(rs.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.state.cleanUpDone:
			return

		case <-ticker.C:
			rs.cleanup()
		}
	}
}

func (rs *RoomService) cleanup() {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	for roomID, entry := range rs.state.rooms {
		if isRoomValid(entry, rs.opts.IdleTimeout) {
			continue
		}

		zap.S().Infof("房间 %s 已闲置 %s，开始清理", roomID, entry.machine.IdleFor().Round(time.Second))

		entry.machine.Stop()
		delete(rs.state.rooms, roomID)
	}
}

// Close 停止清理协程和所有房间的状态机
func (rs *RoomService) Close() {
	rs.state.closeOnce.Do(func() {
		close(rs.state.cleanUpDone)

		rs.state.mu.Lock()
		defer rs.state.mu.Unlock()

		for roomID, entry := range rs.state.rooms {
			entry.machine.Stop()
			delete(rs.state.rooms, roomID)
		}
	})
}

func (rs *RoomService) CreateRoom(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	roomID := game.GenShortID()

	name := strings.TrimSpace(req.RoomName)
	if name == "" {
		name = "Room " + roomID
	}

	room := dto.Room{
		ID:        roomID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	hub := NewHub(roomID)

	opts := []game.Option{game.WithAutoEnd(rs.opts.AutoEnd)}
	if rs.opts.ShuffleRoles {
		opts = append(opts, game.WithRoleShuffle(game.RandomShuffle))
	}

	gc := game.NewGameContext(roomID, rs.opts.Rules, game.ChannelBroadcaster{Pub: hub}, opts...)
	machine := game.NewGameMachine(gc, hub, rs.opts.RequestBuffer)

	rs.state.mu.Lock()
	rs.state.rooms[roomID] = &roomEntry{
		room:    room,
		hub:     hub,
		machine: machine,
	}
	rs.state.mu.Unlock()

	// 每个房间一个独立的 goroutine 处理所有请求
	go machine.Start()

	zap.S().Infof("房间 %s(%s) 已创建", roomID, name)

	return dto.CreateRoomResponse{Room: room}, nil
}

func (rs *RoomService) getEntry(roomID string) (*roomEntry, error) {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	entry, ok := rs.state.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return entry, nil
}

// JoinRoom 为一个连接订阅房间的公共频道，并补发一次当前状态
// 返回的请求通道由连接的读协程使用
func (rs *RoomService) JoinRoom(req dto.JoinRoomRequest, respCh chan game.ResponseWrapper) (chan<- game.Envelope, error) {
	if req.RoomID == "" {
		return nil, errors.New("房间 ID 不能为空")
	}

	entry, err := rs.getEntry(req.RoomID)
	if err != nil {
		return nil, err
	}

	for _, channel := range game.PublicChannels {
		entry.hub.Subscribe(channel, respCh)
	}
	entry.connections.Add(1)

	reqCh := entry.machine.GetReqCh()

	if err := sendWithTimeout(reqCh, game.Envelope{
		Req:    game.RequestWrapper{ReqType: game.REQ_SYNC},
		RespCh: respCh,
	}); err != nil {
		zap.S().Warnf("房间 %s 无法及时处理同步请求", req.RoomID)
	}

	zap.S().Debugf("房间 %s 新连接加入，当前连接数 %d", req.RoomID, entry.connections.Load())

	return reqCh, nil
}

// LeaveRoom 移除连接的所有订阅，玩家本身保留在游戏中以便重连
func (rs *RoomService) LeaveRoom(roomID string, respCh chan game.ResponseWrapper) {
	entry, err := rs.getEntry(roomID)
	if err != nil {
		return
	}

	entry.hub.UnsubscribeAll(respCh)
	entry.connections.Add(-1)

	zap.S().Debugf("房间 %s 连接离开，当前连接数 %d", roomID, entry.connections.Load())
}

// GetRoom 通过状态机取得房间的公开状态，避免在其他协程读取游戏数据
func (rs *RoomService) GetRoom(roomID string) (dto.RoomInfoResponse, error) {
	entry, err := rs.getEntry(roomID)
	if err != nil {
		return dto.RoomInfoResponse{}, err
	}

	respCh := make(chan game.ResponseWrapper, len(game.PublicChannels))

	if err := sendWithTimeout(entry.machine.GetReqCh(), game.Envelope{
		Req:    game.RequestWrapper{ReqType: game.REQ_SYNC},
		RespCh: respCh,
	}); err != nil {
		return dto.RoomInfoResponse{}, err
	}

	info := dto.RoomInfoResponse{
		Room:        entry.room,
		Connections: int(entry.connections.Load()),
	}

	timer := time.NewTimer(ROOM_REQUEST_TIMEOUT)
	defer timer.Stop()

	for info.Players == nil || info.Meta == nil {
		select {
		case resp := <-respCh:
			switch resp.RespType {
			case game.RESP_PLAYERS_UPDATE:
				info.Players = resp.Data
			case game.RESP_GAME_META_UPDATE:
				info.Meta = resp.Data
			}

		case <-timer.C:
			zap.S().Warnf("房间 %s 状态查询超时", roomID)
			return dto.RoomInfoResponse{}, ErrRoomTimeout
		}
	}

	return info, nil
}
