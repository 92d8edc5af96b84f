// Package service 抽奖引擎错误定义
package service

import (
	"errors"
)

var (
	// 参数校验
	ErrInvalidArgument = errors.New("参数无效")

	// 权限
	ErrPermission = errors.New("无权操作该场次")

	// 数据不存在
	ErrSessionNotFound   = errors.New("场次不存在")
	ErrBreakdownNotFound = errors.New("奖品配置不存在")
	ErrGiftNotFound      = errors.New("奖品不存在")
	ErrRoundNotFound     = errors.New("轮次不存在")
	ErrBoostNotFound     = errors.New("指定中奖不存在")

	// 状态冲突
	ErrSessionNotActive        = errors.New("场次已结束")
	ErrBreakdownInactive       = errors.New("奖品配置已停用")
	ErrBreakdownInUse          = errors.New("奖品配置仍有进行中的场次")
	ErrInsufficientInventory   = errors.New("奖品库存不足")
	ErrInvalidTargetSlot       = errors.New("无效的目标名额")
	ErrGiftNotAvailableInRound = errors.New("该奖品在本轮已无库存")
	ErrDuplicateTarget         = errors.New("该名额已被指定")
	ErrRoundExhausted          = errors.New("本轮奖品已抽完")

	// 并发
	ErrConcurrentDraw = errors.New("抽奖繁忙，请稍后重试")
)

// Kind 错误分类，决定调用方如何处理
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPermission
	KindNotFound
	KindConflict
	KindConcurrency
)

// String 分类名称
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	default:
		return "internal"
	}
}

// KindOf 对错误分类，未知错误归为内部错误
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrPermission):
		return KindPermission
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrBreakdownNotFound),
		errors.Is(err, ErrGiftNotFound),
		errors.Is(err, ErrRoundNotFound),
		errors.Is(err, ErrBoostNotFound):
		return KindNotFound
	case errors.Is(err, ErrSessionNotActive),
		errors.Is(err, ErrBreakdownInactive),
		errors.Is(err, ErrBreakdownInUse),
		errors.Is(err, ErrInsufficientInventory),
		errors.Is(err, ErrInvalidTargetSlot),
		errors.Is(err, ErrGiftNotAvailableInRound),
		errors.Is(err, ErrDuplicateTarget),
		errors.Is(err, ErrRoundExhausted):
		return KindConflict
	case errors.Is(err, ErrConcurrentDraw):
		return KindConcurrency
	default:
		return KindInternal
	}
}
