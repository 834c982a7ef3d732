package game

import (
	"errors"
	"fmt"
)

// 三类错误：
// ValidationError 表示请求引用了不存在的玩家/事件/行动，或者玩家没有资格（死亡、无授权）
// StateError 表示请求本身合法，但当前状态不允许（事件已结算、次数用尽、目标不合法等）
// ConfigError 表示静态定义表有缺陷，属于启动期致命错误
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

type StateError struct {
	Msg string
}

func (e *StateError) Error() string {
	return e.Msg
}

type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "配置错误: " + e.Msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func stateErrorf(format string, args ...any) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStateError(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
