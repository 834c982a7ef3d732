package service

import (
	"sync/atomic"
	"time"

	"whodunit-be/internal/service/dto"
	"whodunit-be/internal/service/game"
)

const ROOM_REQUEST_TIMEOUT = 5 * time.Second

type roomEntry struct {
	room    dto.Room
	hub     *Hub
	machine *game.GameMachine

	connections atomic.Int32
}

// 仍有连接的房间永远有效；没有连接且闲置超过 idleTimeout 的房间需要清理
func isRoomValid(entry *roomEntry, idleTimeout time.Duration) bool {
	if entry == nil {
		return false
	}

	if entry.connections.Load() > 0 {
		return true
	}

	return idleTimeout <= 0 || entry.machine.IdleFor() < idleTimeout
}

func sendWithTimeout(reqCh chan<- game.Envelope, env game.Envelope) error {
	timer := time.NewTimer(ROOM_REQUEST_TIMEOUT)
	defer timer.Stop()

	select {
	case reqCh <- env:
		return nil
	case <-timer.C:
		return ErrRoomBusy
	}
}
