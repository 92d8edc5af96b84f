// Package models 数据模型 - 中奖记录与指定中奖
package models

import (
	"time"
)

// GiftWinner 中奖记录，插入后不再修改
type GiftWinner struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   uint      `gorm:"column:session_id;not null;uniqueIndex:idx_session_slot" json:"session_id"`
	RoundID     uint      `gorm:"column:round_id;not null;index" json:"round_id"`
	RoundNumber int       `gorm:"column:round_number;not null;uniqueIndex:idx_session_slot" json:"round_number"` // 场次内全局名额序号
	GiftID      uint      `gorm:"column:gift_id;not null" json:"gift_id"`
	Boosted     bool      `gorm:"column:boosted;default:false" json:"boosted"`
	WinnerName  *string   `gorm:"column:winner_name;size:255" json:"winner_name,omitempty"`
	WinnerPhone *string   `gorm:"column:winner_phone;size:50" json:"winner_phone,omitempty"`
	WinnerEmail *string   `gorm:"column:winner_email;size:255" json:"winner_email,omitempty"`
	WinTime     time.Time `gorm:"column:win_time" json:"win_time"`
}

// TableName 表名
func (GiftWinner) TableName() string {
	return "gift_winners"
}

// GiftBoost 指定某个名额必中某个奖品
type GiftBoost struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   uint      `gorm:"column:session_id;not null;uniqueIndex:idx_session_target" json:"session_id"`
	RoundID     uint      `gorm:"column:round_id;not null" json:"round_id"`
	GiftID      uint      `gorm:"column:gift_id;not null" json:"gift_id"`
	TargetRound int       `gorm:"column:target_round;not null;uniqueIndex:idx_session_target" json:"target_round"` // 目标名额序号
	CreatedBy   int64     `gorm:"column:created_by" json:"created_by"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (GiftBoost) TableName() string {
	return "gift_boosts"
}
