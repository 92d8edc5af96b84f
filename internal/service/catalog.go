// Package service 奖品配置目录
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"github.com/smysle/gift-shuffle-go/pkg/utils"
	"gorm.io/gorm"
)

// Allotment 奖品配置中单个奖品的数量
type Allotment struct {
	GiftID   uint `json:"gift_id"`
	Quantity int  `json:"quantity"`
}

// CreateBreakdownRequest 创建奖品配置请求
type CreateBreakdownRequest struct {
	Name        string      `json:"name"`
	TotalNumber int         `json:"total_number"`
	Gifts       []Allotment `json:"gifts"`
}

// Catalog 奖品配置目录，读取带缓存
type Catalog struct {
	db            *gorm.DB
	giftRepo      *repository.GiftRepository
	breakdownRepo *repository.BreakdownRepository
	sessionRepo   *repository.SessionRepository
	cache         *utils.Cache
	audit         audit.Sink
}

// NewCatalog 创建奖品配置目录
func NewCatalog(db *gorm.DB, cache *utils.Cache, sink audit.Sink) *Catalog {
	return &Catalog{
		db:            db,
		giftRepo:      repository.NewGiftRepository(db),
		breakdownRepo: repository.NewBreakdownRepository(db),
		sessionRepo:   repository.NewSessionRepository(db),
		cache:         cache,
		audit:         sink,
	}
}

// CreateBreakdown 创建奖品配置
func (c *Catalog) CreateBreakdown(ctx context.Context, actorID int64, req *CreateBreakdownRequest) (*models.GiftBreakdown, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if err := validateBreakdown(req); err != nil {
		return nil, err
	}

	gifts := make([]models.BreakdownGift, 0, len(req.Gifts))
	ids := make([]uint, 0, len(req.Gifts))
	for _, a := range req.Gifts {
		gifts = append(gifts, models.BreakdownGift{GiftID: a.GiftID, Quantity: a.Quantity})
		ids = append(ids, a.GiftID)
	}
	sort.Slice(gifts, func(i, j int) bool { return gifts[i].GiftID < gifts[j].GiftID })

	name, _ := utils.TrimToLimit(req.Name, maxNameLength)
	breakdown := &models.GiftBreakdown{
		Name:        name,
		TotalNumber: req.TotalNumber,
		IsActive:    true,
		CreatedBy:   actorID,
		Gifts:       gifts,
	}
	if sum := breakdown.AllotmentSum(); sum != breakdown.TotalNumber {
		return nil, fmt.Errorf("%w: 奖品数量之和 %d 与每轮名额 %d 不一致", ErrInvalidArgument, sum, breakdown.TotalNumber)
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := c.giftRepo.WithTx(tx).CountByIDs(ids)
		if err != nil {
			return err
		}
		if int(count) != len(ids) {
			return ErrGiftNotFound
		}
		return c.breakdownRepo.WithTx(tx).Create(breakdown)
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(actorID, audit.ActionBreakdownCreate, map[string]any{
		"breakdown_id": breakdown.ID,
		"total_number": breakdown.TotalNumber,
	})
	logger.Info().
		Uint("breakdown", breakdown.ID).
		Int("total", breakdown.TotalNumber).
		Int("gifts", len(gifts)).
		Msg("奖品配置已创建")

	return breakdown, nil
}

// validateBreakdown 校验配置字段，数量之和在构建模型后校验
func validateBreakdown(req *CreateBreakdownRequest) error {
	if req == nil {
		return fmt.Errorf("%w: 请求为空", ErrInvalidArgument)
	}
	name, ok := utils.TrimToLimit(req.Name, maxNameLength)
	if name == "" {
		return fmt.Errorf("%w: 配置名称不能为空", ErrInvalidArgument)
	}
	if !ok {
		return fmt.Errorf("%w: 配置名称过长", ErrInvalidArgument)
	}
	if req.TotalNumber <= 0 {
		return fmt.Errorf("%w: 每轮名额必须大于 0", ErrInvalidArgument)
	}
	if len(req.Gifts) == 0 {
		return fmt.Errorf("%w: 至少需要一个奖品", ErrInvalidArgument)
	}

	seen := make(map[uint]bool, len(req.Gifts))
	for _, a := range req.Gifts {
		if a.GiftID == 0 {
			return fmt.Errorf("%w: 缺少奖品 ID", ErrInvalidArgument)
		}
		if a.Quantity <= 0 {
			return fmt.Errorf("%w: 奖品 %d 数量必须大于 0", ErrInvalidArgument, a.GiftID)
		}
		if seen[a.GiftID] {
			return fmt.Errorf("%w: 奖品 %d 重复", ErrInvalidArgument, a.GiftID)
		}
		seen[a.GiftID] = true
	}
	return nil
}

// GetBreakdown 获取奖品配置（带缓存），仅用于只读查询
func (c *Catalog) GetBreakdown(id uint) (*models.GiftBreakdown, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: 缺少配置 ID", ErrInvalidArgument)
	}

	val, err := c.cache.GetOrSet(breakdownCacheKey(id), func() (interface{}, error) {
		b, err := c.breakdownRepo.GetByID(id)
		if err != nil {
			return nil, notFound(err, ErrBreakdownNotFound)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*models.GiftBreakdown), nil
}

// loadBreakdown 在事务中读取最新配置，不经过缓存
func (c *Catalog) loadBreakdown(tx *gorm.DB, id uint) (*models.GiftBreakdown, error) {
	b, err := c.breakdownRepo.WithTx(tx).GetByID(id)
	if err != nil {
		return nil, notFound(err, ErrBreakdownNotFound)
	}
	return b, nil
}

// lockBreakdown 锁定配置行后读取最新数据
func (c *Catalog) lockBreakdown(tx *gorm.DB, id uint) (*models.GiftBreakdown, error) {
	if err := c.breakdownRepo.WithTx(tx).LockByID(id); err != nil {
		return nil, notFound(err, ErrBreakdownNotFound)
	}
	return c.loadBreakdown(tx, id)
}

// SetBreakdownActive 启用或停用奖品配置，仅创建者可操作
// 仍有进行中场次引用该配置时不允许停用
func (c *Catalog) SetBreakdownActive(ctx context.Context, actorID int64, id uint, active bool) (*models.GiftBreakdown, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	var breakdown *models.GiftBreakdown
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := c.lockBreakdown(tx, id)
		if err != nil {
			return err
		}
		if b.CreatedBy != actorID {
			return ErrPermission
		}
		if !active {
			inUse, err := c.sessionRepo.WithTx(tx).CountActiveByBreakdown(id)
			if err != nil {
				return err
			}
			if inUse > 0 {
				return fmt.Errorf("%w: %d 个场次", ErrBreakdownInUse, inUse)
			}
		}
		if err := c.breakdownRepo.WithTx(tx).SetActive(id, active); err != nil {
			return err
		}
		b.IsActive = active
		breakdown = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.Delete(breakdownCacheKey(id))
	c.audit.Record(actorID, audit.ActionBreakdownToggle, map[string]any{
		"breakdown_id": id,
		"active":       active,
	})
	return breakdown, nil
}

func breakdownCacheKey(id uint) string {
	return fmt.Sprintf("breakdown:%d", id)
}
