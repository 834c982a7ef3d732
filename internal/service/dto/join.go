package dto

// WebSocket 握手时通过查询参数携带
// 玩家身份在连接建立后通过 REGISTER_PLAYER 声明，这里只需要房间号
type JoinRoomRequest struct {
	RoomID string `url:"room_id"`
}
