// Package woerr 定义核心业务错误种类。
//
// 校验类错误携带出错字段，一致性错误指明被破坏的约束；
// ErrStaleReference、ErrTimeout 对调用方可重试。
package woerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCode 编码已被占用
	ErrDuplicateCode = errors.New("duplicate code")
	// ErrUnknownCategory 工序分类不存在
	ErrUnknownCategory = errors.New("unknown process category")
	// ErrImmutableBuiltin 内置工序不可删除、编码不可修改
	ErrImmutableBuiltin = errors.New("builtin process is immutable")
	// ErrInUse 仍被进行中的施工单引用
	ErrInUse = errors.New("process is in use by open work orders")
	// ErrInconsistentPlateDeclaration 版声明与版绑定不一致且无法自动修复
	ErrInconsistentPlateDeclaration = errors.New("plate declaration inconsistent with bindings")
	// ErrMissingRequiredPlate 工序需要的版未声明或未绑定
	ErrMissingRequiredPlate = errors.New("missing required plate for process")
	// ErrPlateTypeMismatch 烫版类型与工序不匹配
	ErrPlateTypeMismatch = errors.New("foiling plate type does not match process")
	// ErrStaleReference 派生过程中引用的工序或版已不存在，回滚后可重试
	ErrStaleReference = errors.New("stale reference during derivation")
	// ErrTimeout 聚合锁或事务超时，可重试
	ErrTimeout = errors.New("work order mutation timed out")
	// ErrUnauthorized 当前角色无权执行该操作
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation 创建字段级校验错误
func NewValidation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors 多个字段错误的集合（审核前校验返回）
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msg := e[0].Error()
	if len(e) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e)-1)
	}
	return msg
}

// IsValidation 判断是否为字段级校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}

// IsRetriable 判断错误是否对调用方可重试
func IsRetriable(err error) bool {
	return errors.Is(err, ErrStaleReference) || errors.Is(err, ErrTimeout)
}
