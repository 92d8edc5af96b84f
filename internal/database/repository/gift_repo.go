// Package repository 奖品与奖品配置数据仓库
package repository

import (
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftRepository 奖品仓库
type GiftRepository struct {
	db *gorm.DB
}

// NewGiftRepository 创建奖品仓库
func NewGiftRepository(db *gorm.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *GiftRepository) WithTx(tx *gorm.DB) *GiftRepository {
	return &GiftRepository{db: tx}
}

// Create 创建奖品
func (r *GiftRepository) Create(gift *models.Gift) error {
	return r.db.Create(gift).Error
}

// GetByID 根据 ID 获取奖品
func (r *GiftRepository) GetByID(id uint) (*models.Gift, error) {
	var gift models.Gift
	err := r.db.Where("id = ?", id).First(&gift).Error
	if err != nil {
		return nil, err
	}
	return &gift, nil
}

// ListByOwner 获取操作员创建的奖品
func (r *GiftRepository) ListByOwner(createdBy int64) ([]models.Gift, error) {
	var gifts []models.Gift
	err := r.db.Where("created_by = ?", createdBy).Order("id ASC").Find(&gifts).Error
	return gifts, err
}

// NamesByIDs 批量获取奖品名称
func (r *GiftRepository) NamesByIDs(ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var gifts []models.Gift
	if err := r.db.Select("id", "name").Where("id IN ?", ids).Find(&gifts).Error; err != nil {
		return nil, err
	}
	for _, g := range gifts {
		names[g.ID] = g.Name
	}
	return names, nil
}

// CountByIDs 统计存在的奖品数量
func (r *GiftRepository) CountByIDs(ids []uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Gift{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// BreakdownRepository 奖品配置仓库
type BreakdownRepository struct {
	db *gorm.DB
}

// NewBreakdownRepository 创建奖品配置仓库
func NewBreakdownRepository(db *gorm.DB) *BreakdownRepository {
	return &BreakdownRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *BreakdownRepository) WithTx(tx *gorm.DB) *BreakdownRepository {
	return &BreakdownRepository{db: tx}
}

// Create 创建奖品配置及其奖品数量
func (r *BreakdownRepository) Create(breakdown *models.GiftBreakdown) error {
	return r.db.Create(breakdown).Error
}

// GetByID 获取奖品配置，奖品按 gift_id 排序
func (r *BreakdownRepository) GetByID(id uint) (*models.GiftBreakdown, error) {
	var breakdown models.GiftBreakdown
	err := r.db.Preload("Gifts", func(db *gorm.DB) *gorm.DB {
		return db.Order("gift_id ASC")
	}).Where("id = ?", id).First(&breakdown).Error
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// LockByID 锁定奖品配置行（SELECT ... FOR UPDATE），启停与开场互斥
func (r *BreakdownRepository) LockByID(id uint) error {
	var breakdown models.GiftBreakdown
	return r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&breakdown).Error
}

// SetActive 设置是否可用
func (r *BreakdownRepository) SetActive(id uint, active bool) error {
	return r.db.Model(&models.GiftBreakdown{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}
