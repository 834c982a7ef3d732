package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whodunit-be/internal/config"
	"whodunit-be/internal/service"
	"whodunit-be/internal/service/dto"
	"whodunit-be/internal/service/game"
	"whodunit-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *iris.Application {
	t.Helper()

	roomSvc := service.NewRoomService(service.RoomOptions{
		IdleTimeout:   time.Hour,
		RequestBuffer: 16,
	})
	t.Cleanup(roomSvc.Close)

	app := NewApp(state.NewAppState(&config.AppConfig{}, roomSvc))
	require.NoError(t, app.Build())

	return app
}

func createRoom(t *testing.T, app *iris.Application) dto.Room {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/rooms/create", strings.NewReader(`{"room_name":"Test"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)
	require.Equal(t, iris.StatusOK, rec.Code)

	var resp dto.CreateRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.Room
}

func TestCreateAndGetRoom(t *testing.T) {
	app := newTestApp(t)

	room := createRoom(t, app)
	assert.Equal(t, "Test", room.Name)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/rooms/"+room.ID, nil))
	require.Equal(t, iris.StatusOK, rec.Code)

	var info dto.RoomInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, room.ID, info.Room.ID)
	assert.JSONEq(t, `[]`, string(info.Players))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/rooms/missing", nil))
	assert.Equal(t, iris.StatusNotFound, rec.Code)
}

func TestCreateRoomRejectsBadJSON(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/rooms/create", strings.NewReader(`{"room_name":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)
	assert.Equal(t, iris.StatusBadRequest, rec.Code)
}

func TestJoinRequiresRoomID(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/ws/join", nil))
	assert.Equal(t, iris.StatusBadRequest, rec.Code)
}

func readUntil(t *testing.T, conn *websocket.Conn, respType string) game.ResponseWrapper {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	for {
		var resp game.ResponseWrapper
		require.NoError(t, conn.ReadJSON(&resp))

		if resp.RespType == respType {
			return resp
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	app := newTestApp(t)
	room := createRoom(t, app)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/join?room_id=" + room.ID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// 连接建立后先收到当前状态
	readUntil(t, conn, game.RESP_GAME_META_UPDATE)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    game.REQ_REGISTER_PLAYER,
		"payload": map[string]any{"id": 1, "name": "Eve"},
	}))

	private := readUntil(t, conn, game.PlayerChannel(1))

	var view game.PrivatePlayer
	require.NoError(t, json.Unmarshal(private.Data, &view))
	assert.Equal(t, 1, view.ID)
	assert.Equal(t, "Eve", view.Name)

	// 游戏状态不允许时返回错误
	require.NoError(t, conn.WriteJSON(map[string]any{"type": game.REQ_START_GAME}))

	errResp := readUntil(t, conn, game.RESP_ERROR)
	assert.NotEmpty(t, errResp.ErrMsg)

	// 内部请求类型会被拒绝
	require.NoError(t, conn.WriteJSON(map[string]any{"type": game.REQ_SYNC}))
	readUntil(t, conn, game.RESP_ERROR)
}

func TestWebSocketRejectsOversizedMessage(t *testing.T) {
	app := newTestApp(t)
	room := createRoom(t, app)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/join?room_id=" + room.ID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	readUntil(t, conn, game.RESP_GAME_META_UPDATE)

	payload := `{"type":"` + game.REQ_REGISTER_PLAYER + `","payload":{"id":1,"name":"` + strings.Repeat("x", 32*1024) + `"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))

	// 服务端以 1009 关闭连接
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), err.Error())
			return
		}
	}
}
