// Package service 指定中奖
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"gorm.io/gorm"
)

// RegisterBoostRequest 设置指定中奖请求
type RegisterBoostRequest struct {
	SessionID   uint `json:"session_id"`
	RoundID     uint `json:"round_id"`
	GiftID      uint `json:"gift_id"`
	TargetRound int  `json:"target_round"` // 目标名额序号
}

// BoostRegistry 指定中奖登记，抽奖时按名额序号精确匹配
type BoostRegistry struct {
	boostRepo   *repository.BoostRepository
	sessionRepo *repository.SessionRepository
	roundRepo   *repository.RoundRepository
	winnerRepo  *repository.WinnerRepository
	catalog     *Catalog
	inventory   *Inventory
	runner      *txRunner
	audit       audit.Sink
}

// NewBoostRegistry 创建指定中奖登记
func NewBoostRegistry(db *gorm.DB, catalog *Catalog, inventory *Inventory, runner *txRunner, sink audit.Sink) *BoostRegistry {
	return &BoostRegistry{
		boostRepo:   repository.NewBoostRepository(db),
		sessionRepo: repository.NewSessionRepository(db),
		roundRepo:   repository.NewRoundRepository(db),
		winnerRepo:  repository.NewWinnerRepository(db),
		catalog:     catalog,
		inventory:   inventory,
		runner:      runner,
		audit:       sink,
	}
}

// Register 设置指定中奖
// 目标名额必须尚未抽出且落在所选轮次内，奖品在该轮需有剩余；库存只做预检，抽奖时重新校验
func (b *BoostRegistry) Register(ctx context.Context, actorID int64, req *RegisterBoostRequest) (*models.GiftBoost, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if req == nil || req.SessionID == 0 || req.RoundID == 0 || req.GiftID == 0 {
		return nil, fmt.Errorf("%w: 缺少场次、轮次或奖品", ErrInvalidArgument)
	}
	if req.TargetRound <= 0 {
		return nil, fmt.Errorf("%w: 目标名额必须大于 0", ErrInvalidArgument)
	}

	var boost *models.GiftBoost
	err := b.runner.Run(ctx, func(tx *gorm.DB) error {
		session, err := lockOwnedSession(tx, b.sessionRepo, actorID, req.SessionID)
		if err != nil {
			return err
		}

		round, err := b.roundRepo.WithTx(tx).GetByID(req.RoundID)
		if err != nil {
			return notFound(err, ErrRoundNotFound)
		}
		if round.SessionID != session.ID {
			return ErrRoundNotFound
		}
		breakdown, err := b.catalog.loadBreakdown(tx, session.BreakdownID)
		if err != nil {
			return err
		}

		winners, err := b.winnerRepo.WithTx(tx).MaxSlot(session.ID)
		if err != nil {
			return err
		}
		if req.TargetRound <= winners {
			return fmt.Errorf("%w: 第 %d 个名额已抽出", ErrInvalidTargetSlot, req.TargetRound)
		}
		if last := round.RoundNumber * breakdown.TotalNumber; req.TargetRound > last {
			return fmt.Errorf("%w: 第 %d 轮最多到第 %d 个名额", ErrInvalidTargetSlot, round.RoundNumber, last)
		}

		remaining, err := b.inventory.remaining(b.roundRepo.WithTx(tx), round.ID, req.GiftID)
		if err != nil {
			return err
		}
		if remaining <= 0 {
			return ErrGiftNotAvailableInRound
		}

		repo := b.boostRepo.WithTx(tx)
		exists, err := repo.ExistsTarget(session.ID, req.TargetRound)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateTarget
		}

		boost = &models.GiftBoost{
			SessionID:   session.ID,
			RoundID:     round.ID,
			GiftID:      req.GiftID,
			TargetRound: req.TargetRound,
			CreatedBy:   actorID,
		}
		if err := repo.Create(boost); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateTarget
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.audit.Record(actorID, audit.ActionBoostCreate, map[string]any{
		"session_id":   boost.SessionID,
		"boost_id":     boost.ID,
		"gift_id":      boost.GiftID,
		"target_round": boost.TargetRound,
	})
	logger.Info().
		Uint("session", boost.SessionID).
		Uint("gift", boost.GiftID).
		Int("target", boost.TargetRound).
		Msg("已设置指定中奖")

	return boost, nil
}

// resolve 在事务中查找目标名额的指定中奖并加锁，没有时返回 nil
func (b *BoostRegistry) resolve(tx *gorm.DB, sessionID uint, target int) (*models.GiftBoost, error) {
	boost, err := b.boostRepo.WithTx(tx).LockByTarget(sessionID, target)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return boost, err
}

// consume 在抽奖事务中删除已处理的指定中奖
func (b *BoostRegistry) consume(tx *gorm.DB, boost *models.GiftBoost) error {
	_, err := b.boostRepo.WithTx(tx).Delete(boost.ID)
	return err
}

// Remove 移除指定中奖，仅场次创建者可操作；与抽奖通过场次行锁串行
func (b *BoostRegistry) Remove(ctx context.Context, actorID int64, boostID uint) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	if boostID == 0 {
		return fmt.Errorf("%w: 缺少指定中奖 ID", ErrInvalidArgument)
	}

	var removed *models.GiftBoost
	err := b.runner.Run(ctx, func(tx *gorm.DB) error {
		repo := b.boostRepo.WithTx(tx)
		boost, err := repo.GetByID(boostID)
		if err != nil {
			return notFound(err, ErrBoostNotFound)
		}

		session, err := b.sessionRepo.WithTx(tx).LockByID(boost.SessionID)
		if err != nil {
			return notFound(err, ErrSessionNotFound)
		}
		if !session.IsOwnedBy(actorID) {
			return ErrPermission
		}

		// 加锁期间可能已被抽奖消费
		deleted, err := repo.Delete(boost.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrBoostNotFound
		}
		removed = boost
		return nil
	})
	if err != nil {
		return err
	}

	b.audit.Record(actorID, audit.ActionBoostRemove, map[string]any{
		"session_id":   removed.SessionID,
		"boost_id":     removed.ID,
		"target_round": removed.TargetRound,
	})
	return nil
}

// List 获取场次待生效的指定中奖
func (b *BoostRegistry) List(actorID int64, sessionID uint) ([]models.GiftBoost, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	session, err := b.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	if !session.IsOwnedBy(actorID) {
		return nil, ErrPermission
	}
	return b.boostRepo.ListBySession(sessionID)
}
