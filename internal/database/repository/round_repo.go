// Package repository 轮次与库存数据仓库
package repository

import (
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoundRepository 轮次仓库
type RoundRepository struct {
	db *gorm.DB
}

// NewRoundRepository 创建轮次仓库
func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *RoundRepository) WithTx(tx *gorm.DB) *RoundRepository {
	return &RoundRepository{db: tx}
}

// GetByID 根据 ID 获取轮次
func (r *RoundRepository) GetByID(id uint) (*models.BreakdownRound, error) {
	var round models.BreakdownRound
	err := r.db.Where("id = ?", id).First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// Latest 获取场次最新的轮次
func (r *RoundRepository) Latest(sessionID uint) (*models.BreakdownRound, error) {
	var round models.BreakdownRound
	err := r.db.Where("session_id = ?", sessionID).
		Order("round_number DESC").
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// CreateWithGifts 创建轮次并写入库存
func (r *RoundRepository) CreateWithGifts(round *models.BreakdownRound, gifts []models.RoundGift) error {
	if err := r.db.Create(round).Error; err != nil {
		return err
	}
	for i := range gifts {
		gifts[i].RoundID = round.ID
	}
	if len(gifts) == 0 {
		return nil
	}
	return r.db.Create(&gifts).Error
}

// Gifts 获取轮次库存，按 gift_id 排序
func (r *RoundRepository) Gifts(roundID uint) ([]models.RoundGift, error) {
	var gifts []models.RoundGift
	err := r.db.Where("round_id = ?", roundID).Order("gift_id ASC").Find(&gifts).Error
	return gifts, err
}

// LockGifts 获取轮次库存并加行锁，必须在事务中调用
func (r *RoundRepository) LockGifts(roundID uint) ([]models.RoundGift, error) {
	var gifts []models.RoundGift
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("round_id = ?", roundID).
		Order("gift_id ASC").
		Find(&gifts).Error
	return gifts, err
}

// Gift 获取轮次中单个奖品的库存
func (r *RoundRepository) Gift(roundID, giftID uint) (*models.RoundGift, error) {
	var gift models.RoundGift
	err := r.db.Where("round_id = ? AND gift_id = ?", roundID, giftID).First(&gift).Error
	if err != nil {
		return nil, err
	}
	return &gift, nil
}

// IncrementUsed 增加已用数量（原子操作），超出库存时不更新并返回 false
func (r *RoundRepository) IncrementUsed(roundID, giftID uint, count int) (bool, error) {
	result := r.db.Model(&models.RoundGift{}).
		Where("round_id = ? AND gift_id = ? AND quantity_used + ? <= quantity_available", roundID, giftID, count).
		Update("quantity_used", gorm.Expr("quantity_used + ?", count))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Usage 汇总轮次库存的总量与已用量
func (r *RoundRepository) Usage(roundID uint) (available int, used int, err error) {
	var row struct {
		Available int
		Used      int
	}
	err = r.db.Model(&models.RoundGift{}).
		Select("COALESCE(SUM(quantity_available), 0) AS available, COALESCE(SUM(quantity_used), 0) AS used").
		Where("round_id = ?", roundID).
		Scan(&row).Error
	return row.Available, row.Used, err
}
