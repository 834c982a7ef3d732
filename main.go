package main

import (
	"time"

	"whodunit-be/internal/api/http"
	"whodunit-be/internal/config"
	"whodunit-be/internal/logger"
	"whodunit-be/internal/service"
	"whodunit-be/internal/state"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.GetConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	// 规则表有缺陷时无法开始任何一局游戏，直接退出
	rules, err := cfg.BuildRules()
	if err != nil {
		zap.L().Fatal("规则表校验失败", zap.Error(err))
	}

	roomSvc := service.NewRoomService(service.RoomOptions{
		Rules:         rules,
		ShuffleRoles:  cfg.ShuffleRoles,
		AutoEnd:       cfg.AutoEndGame,
		IdleTimeout:   time.Duration(cfg.RoomIdleMinutes) * time.Minute,
		RequestBuffer: cfg.RequestBuffer,
	})
	defer roomSvc.Close()

	// 组装应用状态
	appState := state.NewAppState(cfg, roomSvc)

	// 启动服务器
	if err := http.RunServer(appState); err != nil {
		zap.L().Error("服务器退出", zap.Error(err))
	}
}
