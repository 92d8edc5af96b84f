// Package models 数据模型 - 抽奖场次
package models

import (
	"time"
)

// SessionStatus 场次状态
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// ShuffleSession 抽奖场次表
type ShuffleSession struct {
	ID                  uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	BreakdownID         uint          `gorm:"column:breakdown_id;not null;index" json:"breakdown_id"`
	Status              SessionStatus `gorm:"column:status;size:20;default:'active';index" json:"status"`
	AccessCode          string        `gorm:"column:access_code;size:32;uniqueIndex" json:"access_code"`
	CollectCustomerInfo bool          `gorm:"column:collect_customer_info;default:false" json:"collect_customer_info"`
	BreakdownRound      int           `gorm:"column:breakdown_round;default:1" json:"breakdown_round"`           // 缓存的循环轮次，可由中奖数推算
	AutoAdvanceSeconds  int           `gorm:"column:auto_advance_seconds;default:0" json:"auto_advance_seconds"` // 0 表示不自动抽奖
	CreatedBy           int64         `gorm:"column:created_by;index" json:"created_by"`
	CreatedAt           time.Time     `gorm:"column:created_at" json:"created_at"`
	CompletedAt         *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// TableName 表名
func (ShuffleSession) TableName() string {
	return "shuffle_sessions"
}

// IsActive 是否进行中
func (s *ShuffleSession) IsActive() bool {
	return s.Status == SessionActive
}

// IsOwnedBy 是否由该操作员创建
func (s *ShuffleSession) IsOwnedBy(actorID int64) bool {
	return s.CreatedBy == actorID
}
