// Package models 数据模型 - 轮次与轮次库存
package models

import (
	"time"
)

// BreakdownRound 场次中的一轮，共 TotalNumber 个名额
type BreakdownRound struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   uint      `gorm:"column:session_id;not null;uniqueIndex:idx_session_round" json:"session_id"`
	BreakdownID uint      `gorm:"column:breakdown_id;not null" json:"breakdown_id"`
	RoundNumber int       `gorm:"column:round_number;not null;uniqueIndex:idx_session_round" json:"round_number"` // 场次内从 1 开始
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (BreakdownRound) TableName() string {
	return "breakdown_rounds"
}

// RoundGift 某一轮中某个奖品的库存
type RoundGift struct {
	ID                uint `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundID           uint `gorm:"column:round_id;not null;uniqueIndex:idx_round_gift" json:"round_id"`
	GiftID            uint `gorm:"column:gift_id;not null;uniqueIndex:idx_round_gift" json:"gift_id"`
	QuantityAvailable int  `gorm:"column:quantity_available;not null" json:"quantity_available"`
	QuantityUsed      int  `gorm:"column:quantity_used;not null;default:0" json:"quantity_used"`
}

// TableName 表名
func (RoundGift) TableName() string {
	return "round_gifts"
}

// Remaining 剩余数量，数据异常时不返回负数
func (g *RoundGift) Remaining() int {
	if r := g.QuantityAvailable - g.QuantityUsed; r > 0 {
		return r
	}
	return 0
}
