package dto

import (
	"encoding/json"
	"time"
)

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	RoomName string `json:"room_name"`
}

type CreateRoomResponse struct {
	Room Room `json:"room"`
}

// 房间的公开状态，由游戏状态机在自己的协程里序列化
type RoomInfoResponse struct {
	Room        Room            `json:"room"`
	Connections int             `json:"connections"`
	Players     json.RawMessage `json:"players"`
	Meta        json.RawMessage `json:"meta"`
}
