// Package service 轮次库存
package service

import (
	"fmt"

	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"gorm.io/gorm"
)

// Inventory 每轮每个奖品的库存，扣减只发生在单个轮次内
type Inventory struct {
	roundRepo *repository.RoundRepository
}

// NewInventory 创建库存服务
func NewInventory(db *gorm.DB) *Inventory {
	return &Inventory{roundRepo: repository.NewRoundRepository(db)}
}

// Remaining 奖品在轮次中的剩余数量，奖品不在该轮时返回 ErrGiftNotAvailableInRound
func (i *Inventory) Remaining(roundID, giftID uint) (int, error) {
	return i.remaining(i.roundRepo, roundID, giftID)
}

func (i *Inventory) remaining(repo *repository.RoundRepository, roundID, giftID uint) (int, error) {
	rg, err := repo.Gift(roundID, giftID)
	if err != nil {
		return 0, notFound(err, ErrGiftNotAvailableInRound)
	}
	return rg.Remaining(), nil
}

// Commit 在事务中扣减库存，超出可用数量时返回 ErrInsufficientInventory 且不做修改
func (i *Inventory) Commit(tx *gorm.DB, roundID, giftID uint, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: 扣减数量必须大于 0", ErrInvalidArgument)
	}

	ok, err := i.roundRepo.WithTx(tx).IncrementUsed(roundID, giftID, count)
	if err != nil {
		return fmt.Errorf("扣减库存失败: %w", err)
	}
	if !ok {
		return ErrInsufficientInventory
	}
	return nil
}

// Gifts 轮次的全部库存，按 gift_id 排序
func (i *Inventory) Gifts(roundID uint) ([]models.RoundGift, error) {
	return i.roundRepo.Gifts(roundID)
}
