package websocket

import (
	"net/http"
	"time"

	"whodunit-be/internal/service/game"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
)

const (
	// 服务端发送 ping 的间隔
	HEARTBEAT_INTERVAL = 30 * time.Second
	// 超过这个时间没有收到任何消息或 pong 就断开
	HEARTBEAT_TIMEOUT = 45 * time.Second
	// 单次写入的超时时间
	WRITE_TIMEOUT = 10 * time.Second

	// 单条客户端消息的大小上限，请求都是很小的 JSON
	MAX_MESSAGE_SIZE = 16 * 1024

	// 每个连接的响应缓冲，一次广播最多占用 5 帧
	RESPONSE_BUFFER = 64
)

// 主持人屏幕和玩家手机通常不同源，所以不校验 Origin
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// upgrade 升级连接并装好读超时、消息大小上限和 pong 续期
func upgrade(ctx iris.Context) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		return nil, err
	}

	conn.SetReadLimit(MAX_MESSAGE_SIZE)
	conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
	})

	return conn, nil
}

func writeFrame(conn *websocket.Conn, resp game.ResponseWrapper) error {
	conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
	return conn.WriteJSON(resp)
}

func writePing(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// 客户端正常关闭或直接断线不算错误
func isUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
	)
}
