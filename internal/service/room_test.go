package service

import (
	"encoding/json"
	"testing"
	"time"

	"whodunit-be/internal/service/dto"
	"whodunit-be/internal/service/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoomService(t *testing.T, idle time.Duration) *RoomService {
	t.Helper()

	rs := NewRoomService(RoomOptions{
		IdleTimeout:     idle,
		RequestBuffer:   16,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rs.Close)

	return rs
}

func receive(t *testing.T, ch <-chan game.ResponseWrapper, respType string) game.ResponseWrapper {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case resp := <-ch:
			if resp.RespType == respType {
				return resp
			}
		case <-timeout:
			require.FailNow(t, "等待响应超时", respType)
		}
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	rs := newTestRoomService(t, time.Hour)

	created, err := rs.CreateRoom(dto.CreateRoomRequest{RoomName: "Friday"})
	require.NoError(t, err)
	assert.Len(t, created.Room.ID, 8)
	assert.Equal(t, "Friday", created.Room.Name)

	info, err := rs.GetRoom(created.Room.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Room.ID, info.Room.ID)
	assert.Zero(t, info.Connections)

	var meta game.GameMeta
	require.NoError(t, json.Unmarshal(info.Meta, &meta))
	assert.Equal(t, game.METAPHASE_PREGAME, meta.Metaphase)

	_, err = rs.GetRoom("missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreateRoomDefaultName(t *testing.T) {
	rs := newTestRoomService(t, time.Hour)

	created, err := rs.CreateRoom(dto.CreateRoomRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Room "+created.Room.ID, created.Room.Name)
}

func TestJoinRoomReceivesStateAndBroadcasts(t *testing.T) {
	rs := newTestRoomService(t, time.Hour)

	created, err := rs.CreateRoom(dto.CreateRoomRequest{})
	require.NoError(t, err)
	roomID := created.Room.ID

	host := make(chan game.ResponseWrapper, 32)
	reqCh, err := rs.JoinRoom(dto.JoinRoomRequest{RoomID: roomID}, host)
	require.NoError(t, err)

	// 加入后立即收到当前状态
	receive(t, host, game.RESP_GAME_META_UPDATE)

	phone := make(chan game.ResponseWrapper, 32)
	_, err = rs.JoinRoom(dto.JoinRoomRequest{RoomID: roomID}, phone)
	require.NoError(t, err)
	receive(t, phone, game.RESP_LOG_UPDATE)

	payload, err := json.Marshal(game.RegisterPlayerRequest{ID: 7, Name: "Dana"})
	require.NoError(t, err)

	reqCh <- game.Envelope{
		Req:    game.RequestWrapper{ReqType: game.REQ_REGISTER_PLAYER, Data: payload},
		RespCh: phone,
	}

	// 私有频道只推给注册的连接，公共频道推给所有连接
	private := receive(t, phone, game.PlayerChannel(7))
	var view game.PrivatePlayer
	require.NoError(t, json.Unmarshal(private.Data, &view))
	assert.Equal(t, "Dana", view.Name)

	update := receive(t, host, game.RESP_PLAYERS_UPDATE)
	var players []game.PublicPlayer
	require.NoError(t, json.Unmarshal(update.Data, &players))
	require.Len(t, players, 1)
	assert.Equal(t, 7, players[0].ID)

	info, err := rs.GetRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Connections)

	rs.LeaveRoom(roomID, phone)
	info, err = rs.GetRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Connections)
}

func TestJoinMissingRoom(t *testing.T) {
	rs := newTestRoomService(t, time.Hour)

	_, err := rs.JoinRoom(dto.JoinRoomRequest{RoomID: "nope"}, make(chan game.ResponseWrapper, 1))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = rs.JoinRoom(dto.JoinRoomRequest{}, make(chan game.ResponseWrapper, 1))
	assert.Error(t, err)
}

func TestCleanupRemovesIdleRooms(t *testing.T) {
	rs := newTestRoomService(t, time.Millisecond)

	idle, err := rs.CreateRoom(dto.CreateRoomRequest{})
	require.NoError(t, err)

	busy, err := rs.CreateRoom(dto.CreateRoomRequest{})
	require.NoError(t, err)

	conn := make(chan game.ResponseWrapper, 16)
	_, err = rs.JoinRoom(dto.JoinRoomRequest{RoomID: busy.Room.ID}, conn)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	rs.cleanup()

	_, err = rs.GetRoom(idle.Room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = rs.GetRoom(busy.Room.ID)
	assert.NoError(t, err)
}
