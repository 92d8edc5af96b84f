// Package repository 中奖记录与指定中奖数据仓库
package repository

import (
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WinnerRepository 中奖记录仓库
type WinnerRepository struct {
	db *gorm.DB
}

// NewWinnerRepository 创建中奖记录仓库
func NewWinnerRepository(db *gorm.DB) *WinnerRepository {
	return &WinnerRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *WinnerRepository) WithTx(tx *gorm.DB) *WinnerRepository {
	return &WinnerRepository{db: tx}
}

// Create 创建中奖记录
func (r *WinnerRepository) Create(winner *models.GiftWinner) error {
	return r.db.Create(winner).Error
}

// MaxSlot 场次已产生的最大名额序号，没有中奖记录时为 0
func (r *WinnerRepository) MaxSlot(sessionID uint) (int, error) {
	var slot int
	err := r.db.Model(&models.GiftWinner{}).
		Select("COALESCE(MAX(round_number), 0)").
		Where("session_id = ?", sessionID).
		Scan(&slot).Error
	return slot, err
}

// GetBySlot 根据名额序号获取中奖记录
func (r *WinnerRepository) GetBySlot(sessionID uint, slot int) (*models.GiftWinner, error) {
	var winner models.GiftWinner
	err := r.db.Where("session_id = ? AND round_number = ?", sessionID, slot).First(&winner).Error
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// ListAfter 获取名额序号大于 afterSlot 的中奖记录
func (r *WinnerRepository) ListAfter(sessionID uint, afterSlot, limit int) ([]models.GiftWinner, error) {
	var winners []models.GiftWinner
	err := r.db.Where("session_id = ? AND round_number > ?", sessionID, afterSlot).
		Order("round_number ASC").
		Limit(limit).
		Find(&winners).Error
	return winners, err
}

// BoostRepository 指定中奖仓库
type BoostRepository struct {
	db *gorm.DB
}

// NewBoostRepository 创建指定中奖仓库
func NewBoostRepository(db *gorm.DB) *BoostRepository {
	return &BoostRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *BoostRepository) WithTx(tx *gorm.DB) *BoostRepository {
	return &BoostRepository{db: tx}
}

// Create 创建指定中奖
func (r *BoostRepository) Create(boost *models.GiftBoost) error {
	return r.db.Create(boost).Error
}

// GetByID 根据 ID 获取
func (r *BoostRepository) GetByID(id uint) (*models.GiftBoost, error) {
	var boost models.GiftBoost
	err := r.db.Where("id = ?", id).First(&boost).Error
	if err != nil {
		return nil, err
	}
	return &boost, nil
}

// LockByTarget 按目标名额查找并加行锁，必须在事务中调用
func (r *BoostRepository) LockByTarget(sessionID uint, target int) (*models.GiftBoost, error) {
	var boost models.GiftBoost
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND target_round = ?", sessionID, target).
		First(&boost).Error
	if err != nil {
		return nil, err
	}
	return &boost, nil
}

// ExistsTarget 目标名额是否已被指定
func (r *BoostRepository) ExistsTarget(sessionID uint, target int) (bool, error) {
	var count int64
	err := r.db.Model(&models.GiftBoost{}).
		Where("session_id = ? AND target_round = ?", sessionID, target).
		Count(&count).Error
	return count > 0, err
}

// ListBySession 获取场次待生效的指定中奖，按目标名额排序
func (r *BoostRepository) ListBySession(sessionID uint) ([]models.GiftBoost, error) {
	var boosts []models.GiftBoost
	err := r.db.Where("session_id = ?", sessionID).Order("target_round ASC").Find(&boosts).Error
	return boosts, err
}

// Delete 删除指定中奖，返回是否删除了记录
func (r *BoostRepository) Delete(id uint) (bool, error) {
	result := r.db.Delete(&models.GiftBoost{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

// DeleteBySession 删除场次所有指定中奖
func (r *BoostRepository) DeleteBySession(sessionID uint) (int64, error) {
	result := r.db.Delete(&models.GiftBoost{}, "session_id = ?", sessionID)
	return result.RowsAffected, result.Error
}
