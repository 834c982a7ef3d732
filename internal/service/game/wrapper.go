package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_REGISTER_PLAYER    = "REGISTER_PLAYER"
	REQ_UPDATE_PLAYER_NAME = "UPDATE_PLAYER_NAME"
	REQ_PLAYER_SELECT      = "PLAYER_SELECT"
	REQ_PLAYER_CONFIRM     = "PLAYER_CONFIRM"
	REQ_PLAYER_INTERRUPT   = "PLAYER_INTERRUPT"
	REQ_START_GAME         = "START_GAME"
	REQ_SET_PHASE          = "SET_PHASE"
	REQ_NEXT_PHASE         = "NEXT_PHASE"
	REQ_RESOLVE_PHASE      = "RESOLVE_PHASE"
	REQ_RESOLVE_DEATHS     = "RESOLVE_DEATHS"
	REQ_KILL_PLAYER        = "KILL_PLAYER"
	REQ_REVIVE_PLAYER      = "REVIVE_PLAYER"
	REQ_ASSIGN_ROLE        = "ASSIGN_ROLE"
	REQ_START_EVENT        = "START_EVENT"
	REQ_RESOLVE_EVENT      = "RESOLVE_EVENT"
	REQ_START_ALL_EVENTS   = "START_ALL_EVENTS"
	REQ_RESOLVE_ALL_EVENTS = "RESOLVE_ALL_EVENTS"
	REQ_CLEAR_EVENT        = "CLEAR_EVENT"
	REQ_HOST_CONTROL       = "HOST_CONTROL"
	REQ_END_GAME           = "END_GAME"

	// 服务器内部使用：新连接加入房间后补发一次当前状态
	REQ_SYNC = "SYNC"
)

type RequestWrapper struct {
	ReqType string          `json:"type"`
	Data    json.RawMessage `json:"payload"`
}

type RegisterPlayerRequest struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

type UpdatePlayerNameRequest struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type PlayerSelectRequest struct {
	PlayerID   int        `json:"playerId"`
	ActionName ActionKind `json:"actionName"`
	Value      int        `json:"value"`
}

// 同时用于 PLAYER_CONFIRM 和 PLAYER_INTERRUPT
type PlayerActionRequest struct {
	PlayerID   int        `json:"playerId"`
	ActionName ActionKind `json:"actionName"`
}

type SetPhaseRequest struct {
	Phase Phase `json:"phase"`
}

// 同时用于 KILL_PLAYER 和 REVIVE_PLAYER
type PlayerTargetRequest struct {
	PlayerID int `json:"playerId"`
}

type AssignRoleRequest struct {
	PlayerID int    `json:"playerId"`
	Role     string `json:"role"`
}

type StartEventRequest struct {
	EventName   EventKind `json:"eventName"`
	InitiatedBy string    `json:"initiatedBy,omitempty"`
}

// 同时用于 RESOLVE_EVENT 和 CLEAR_EVENT
type EventIDRequest struct {
	EventID string `json:"eventId"`
}

// 幻灯片控制由展示层解释，这里只转发
type HostControlRequest struct {
	ID string `json:"id"`
}

// tryUnwrap 在类型匹配时解析 payload，类型不符或解析失败时返回 nil
func tryUnwrap[T any](wrapper RequestWrapper, reqTypes ...string) *T {
	matched := false
	for _, t := range reqTypes {
		if wrapper.ReqType == t {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	var req T

	if len(wrapper.Data) == 0 {
		return &req
	}

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Error(
			"解析请求失败",
			zap.String("request_type", wrapper.ReqType),
			zap.Error(err),
		)
		return nil
	}

	return &req
}

func TryUnwrapRegisterPlayerRequest(wrapper RequestWrapper) *RegisterPlayerRequest {
	return tryUnwrap[RegisterPlayerRequest](wrapper, REQ_REGISTER_PLAYER)
}

func TryUnwrapUpdatePlayerNameRequest(wrapper RequestWrapper) *UpdatePlayerNameRequest {
	return tryUnwrap[UpdatePlayerNameRequest](wrapper, REQ_UPDATE_PLAYER_NAME)
}

func TryUnwrapPlayerSelectRequest(wrapper RequestWrapper) *PlayerSelectRequest {
	return tryUnwrap[PlayerSelectRequest](wrapper, REQ_PLAYER_SELECT)
}

func TryUnwrapPlayerActionRequest(wrapper RequestWrapper) *PlayerActionRequest {
	return tryUnwrap[PlayerActionRequest](wrapper, REQ_PLAYER_CONFIRM, REQ_PLAYER_INTERRUPT)
}

func TryUnwrapSetPhaseRequest(wrapper RequestWrapper) *SetPhaseRequest {
	return tryUnwrap[SetPhaseRequest](wrapper, REQ_SET_PHASE)
}

func TryUnwrapPlayerTargetRequest(wrapper RequestWrapper) *PlayerTargetRequest {
	return tryUnwrap[PlayerTargetRequest](wrapper, REQ_KILL_PLAYER, REQ_REVIVE_PLAYER)
}

func TryUnwrapAssignRoleRequest(wrapper RequestWrapper) *AssignRoleRequest {
	return tryUnwrap[AssignRoleRequest](wrapper, REQ_ASSIGN_ROLE)
}

func TryUnwrapStartEventRequest(wrapper RequestWrapper) *StartEventRequest {
	return tryUnwrap[StartEventRequest](wrapper, REQ_START_EVENT)
}

func TryUnwrapEventIDRequest(wrapper RequestWrapper) *EventIDRequest {
	return tryUnwrap[EventIDRequest](wrapper, REQ_RESOLVE_EVENT, REQ_CLEAR_EVENT)
}

func TryUnwrapHostControlRequest(wrapper RequestWrapper) *HostControlRequest {
	return tryUnwrap[HostControlRequest](wrapper, REQ_HOST_CONTROL)
}

// 响应类型，同时也是发布订阅的频道名
const (
	RESP_ERROR = "ERROR"

	RESP_PLAYERS_UPDATE   = "PLAYERS_UPDATE"
	RESP_GAME_META_UPDATE = "GAME_META_UPDATE"
	RESP_LOG_UPDATE       = "LOG_UPDATE"
	RESP_SLIDES_UPDATE    = "SLIDES_UPDATE"

	// 实际频道为 PLAYER_UPDATE:<id>
	RESP_PLAYER_UPDATE_PREFIX = "PLAYER_UPDATE:"
)

// 所有连接加入房间时都会订阅的公共频道
var PublicChannels = []string{
	RESP_PLAYERS_UPDATE,
	RESP_GAME_META_UPDATE,
	RESP_LOG_UPDATE,
	RESP_SLIDES_UPDATE,
}

type ResponseWrapper struct {
	RespType string          `json:"type"`
	Data     json.RawMessage `json:"payload,omitempty"`
	ErrMsg   string          `json:"error_message,omitempty"`
}

// WrapResponse 立即序列化 data，发送出去的响应不再引用游戏状态
func WrapResponse(respType string, data any) ResponseWrapper {
	payload, err := json.Marshal(data)
	if err != nil {
		zap.L().Error(
			"序列化响应失败",
			zap.String("response_type", respType),
			zap.Error(err),
		)
		return WrapErrResponse("服务器内部错误")
	}

	return ResponseWrapper{
		RespType: respType,
		Data:     payload,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
