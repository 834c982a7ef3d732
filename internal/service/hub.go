package service

import (
	"slices"
	"sync"

	"whodunit-be/internal/service/game"

	"go.uber.org/zap"
)

// Hub 是房间内的发布订阅总线，频道名即响应类型
// 游戏状态机在自己的协程里发布，连接协程订阅和退订
type Hub struct {
	mu sync.RWMutex

	roomID string
	subs   map[string][]chan game.ResponseWrapper
}

func NewHub(roomID string) *Hub {
	return &Hub{
		roomID: roomID,
		subs:   make(map[string][]chan game.ResponseWrapper),
	}
}

func (h *Hub) Subscribe(channel string, ch chan game.ResponseWrapper) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if slices.Contains(h.subs[channel], ch) {
		return
	}

	h.subs[channel] = append(h.subs[channel], ch)
}

func (h *Hub) Unsubscribe(channel string, ch chan game.ResponseWrapper) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(channel, ch)
}

// UnsubscribeAll 在连接断开时调用，移除该连接的所有订阅
func (h *Hub) UnsubscribeAll(ch chan game.ResponseWrapper) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.subs {
		h.unsubscribeLocked(channel, ch)
	}
}

func (h *Hub) unsubscribeLocked(channel string, ch chan game.ResponseWrapper) {
	remaining := slices.DeleteFunc(h.subs[channel], func(c chan game.ResponseWrapper) bool {
		return c == ch
	})

	if len(remaining) == 0 {
		delete(h.subs, channel)
		return
	}

	h.subs[channel] = remaining
}

// Publish 不阻塞：订阅者的缓冲区满时丢弃这一帧
func (h *Hub) Publish(channel string, resp game.ResponseWrapper) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[channel] {
		select {
		case ch <- resp:
		default:
			zap.L().Warn(
				"推送消息失败：订阅者缓冲区已满",
				zap.String("room_id", h.roomID),
				zap.String("channel", channel),
			)
		}
	}
}

func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[channel])
}
