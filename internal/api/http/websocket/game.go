package websocket

import (
	"encoding/json"
	"time"

	"whodunit-be/internal/service/dto"
	"whodunit-be/internal/service/game"
	"whodunit-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.JoinRoomRequest

		if err := ctx.ReadQuery(&req); err != nil || req.RoomID == "" {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "缺少房间 ID",
			})
			return
		}

		conn, err := upgrade(ctx)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		clientIP := ctx.RemoteAddr()

		// 订阅的所有频道和单播响应都写入这个通道
		// 通道不会被关闭：状态机可能仍持有它，写协程通过 writeDoneCh 退出
		respCh := make(chan game.ResponseWrapper, RESPONSE_BUFFER)

		// 先加入房间，获取游戏状态机的请求通道
		reqCh, err := appState.RoomSvc.JoinRoom(req, respCh)
		if err != nil {
			zap.L().Error(
				"加入房间失败",
				zap.String("client_ip", clientIP),
				zap.String("room_id", req.RoomID),
				zap.Error(err),
			)

			writeFrame(conn, game.WrapErrResponse(err.Error()))
			return
		}

		defer appState.RoomSvc.LeaveRoom(req.RoomID, respCh)

		zap.L().Info(
			"客户端加入房间",
			zap.String("client_ip", clientIP),
			zap.String("room_id", req.RoomID),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		go writeLoop(conn, respCh, writeDoneCh, clientIP)

		// 读取协程（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if isUnexpectedClose(err) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper game.RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Warn(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				sendLocal(respCh, game.WrapErrResponse("无效的请求格式"))
				continue
			}

			// 内部请求类型不接受来自客户端的消息
			if wrapper.ReqType == game.REQ_SYNC {
				sendLocal(respCh, game.WrapErrResponse("无效的请求类型"))
				continue
			}

			// 将解析后的请求发送到游戏状态机
			select {
			case reqCh <- game.Envelope{Req: wrapper, RespCh: respCh}:
				zap.L().Debug(
					"发送请求到游戏状态机",
					zap.String("client_ip", clientIP),
					zap.String("request_type", wrapper.ReqType),
				)
			default:
				zap.L().Error(
					"发送请求到游戏状态机失败：请求通道已满",
					zap.String("client_ip", clientIP),
				)

				sendLocal(respCh, game.WrapErrResponse("房间繁忙，请稍后再试"))
			}
		}

		zap.L().Info(
			"客户端连接断开",
			zap.String("client_ip", clientIP),
			zap.String("room_id", req.RoomID),
		)
	}
}

func writeLoop(
	conn *websocket.Conn,
	respCh <-chan game.ResponseWrapper,
	doneCh <-chan struct{},
	clientIP string,
) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			zap.L().Debug(
				"WebSocket写入协程退出",
				zap.String("client_ip", clientIP),
			)
			return

		case <-ticker.C:
			if err := writePing(conn); err != nil {
				zap.L().Error(
					"发送心跳失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}

		case resp := <-respCh:
			if err := writeFrame(conn, resp); err != nil {
				zap.L().Error(
					"发送消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}

			zap.L().Debug(
				"发送消息",
				zap.String("client_ip", clientIP),
				zap.String("response_type", resp.RespType),
			)
		}
	}
}

// sendLocal 在读协程里直接回复客户端，缓冲区满时丢弃
func sendLocal(respCh chan<- game.ResponseWrapper, resp game.ResponseWrapper) {
	select {
	case respCh <- resp:
	default:
		zap.L().Warn("响应缓冲区已满，丢弃错误响应")
	}
}
