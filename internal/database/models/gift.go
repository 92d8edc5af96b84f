// Package models 数据模型 - 奖品与奖品配置
package models

import (
	"time"
)

// Gift 奖品表
type Gift struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Image     string    `gorm:"column:image;size:500" json:"image,omitempty"` // 奖品图片路径
	CreatedBy int64     `gorm:"column:created_by;index" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (Gift) TableName() string {
	return "gifts"
}

// GiftBreakdown 奖品配置模板，每轮 TotalNumber 个中奖名额
type GiftBreakdown struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"column:name;size:255;not null" json:"name"`
	TotalNumber int             `gorm:"column:total_number;not null" json:"total_number"` // 每轮名额
	IsActive    bool            `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedBy   int64           `gorm:"column:created_by;index" json:"created_by"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
	Gifts       []BreakdownGift `gorm:"foreignKey:BreakdownID" json:"gifts,omitempty"`
}

// TableName 表名
func (GiftBreakdown) TableName() string {
	return "gift_breakdowns"
}

// AllotmentSum 所有奖品数量之和
func (b *GiftBreakdown) AllotmentSum() int {
	sum := 0
	for _, g := range b.Gifts {
		sum += g.Quantity
	}
	return sum
}

// BreakdownGift 奖品配置中单个奖品的数量
type BreakdownGift struct {
	ID          uint `gorm:"primaryKey;autoIncrement" json:"id"`
	BreakdownID uint `gorm:"column:breakdown_id;not null;uniqueIndex:idx_breakdown_gift" json:"breakdown_id"`
	GiftID      uint `gorm:"column:gift_id;not null;uniqueIndex:idx_breakdown_gift" json:"gift_id"`
	Quantity    int  `gorm:"column:quantity;not null" json:"quantity"`
}

// TableName 表名
func (BreakdownGift) TableName() string {
	return "breakdown_gifts"
}
