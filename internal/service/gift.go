// Package service 奖品服务
package service

import (
	"fmt"

	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"github.com/smysle/gift-shuffle-go/pkg/utils"
	"gorm.io/gorm"
)

const (
	maxNameLength  = 255
	maxPhoneLength = 50
	maxImageLength = 500
)

// GiftService 奖品服务
type GiftService struct {
	giftRepo *repository.GiftRepository
}

// NewGiftService 创建奖品服务
func NewGiftService(db *gorm.DB) *GiftService {
	return &GiftService{
		giftRepo: repository.NewGiftRepository(db),
	}
}

// CreateGift 创建奖品，图片路径由上传服务提供
func (s *GiftService) CreateGift(actorID int64, name, image string) (*models.Gift, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	name, ok := utils.TrimToLimit(name, maxNameLength)
	if name == "" {
		return nil, fmt.Errorf("%w: 奖品名称不能为空", ErrInvalidArgument)
	}
	if !ok {
		return nil, fmt.Errorf("%w: 奖品名称过长", ErrInvalidArgument)
	}
	image, ok = utils.TrimToLimit(image, maxImageLength)
	if !ok {
		return nil, fmt.Errorf("%w: 图片路径过长", ErrInvalidArgument)
	}

	gift := &models.Gift{
		Name:      name,
		Image:     image,
		CreatedBy: actorID,
	}
	if err := s.giftRepo.Create(gift); err != nil {
		return nil, fmt.Errorf("创建奖品失败: %w", err)
	}

	logger.Info().Uint("gift", gift.ID).Int64("actor", actorID).Str("name", name).Msg("奖品已创建")
	return gift, nil
}

// ListGifts 获取操作员的奖品
func (s *GiftService) ListGifts(actorID int64) ([]models.Gift, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.giftRepo.ListByOwner(actorID)
}

// requireActor 校验操作员身份
func requireActor(actorID int64) error {
	if actorID <= 0 {
		return fmt.Errorf("%w: 缺少操作员身份", ErrPermission)
	}
	return nil
}
