// Package service 抽奖算法
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"github.com/smysle/gift-shuffle-go/pkg/utils"
	"gorm.io/gorm"
)

// CustomerInfo 中奖者信息，仅在场次开启收集时保存
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// validate 校验字段长度，与表结构保持一致
func (c *CustomerInfo) validate() error {
	if c == nil {
		return nil
	}
	limits := []struct {
		value string
		limit int
	}{
		{c.Name, maxNameLength},
		{c.Phone, maxPhoneLength},
		{c.Email, maxNameLength},
	}
	for _, l := range limits {
		if _, ok := utils.TrimToLimit(l.value, l.limit); !ok {
			return fmt.Errorf("%w: 中奖者信息过长", ErrInvalidArgument)
		}
	}
	return nil
}

// DrawRequest 抽奖请求
type DrawRequest struct {
	SessionID uint
	ActorID   int64
	Customer  *CustomerInfo
}

// DrawResult 抽奖结果
type DrawResult struct {
	Winner         models.GiftWinner     `json:"winner"`
	GiftName       string                `json:"gift_name"`
	Round          models.BreakdownRound `json:"round"`
	BreakdownRound int                   `json:"breakdown_round"`
	RoundCreated   bool                  `json:"round_created"`
	BoostConsumed  *models.GiftBoost     `json:"boost_consumed,omitempty"`
	BoostDiscarded *models.GiftBoost     `json:"boost_discarded,omitempty"`
}

// Selector 抽奖
type Selector struct {
	sessionRepo *repository.SessionRepository
	roundRepo   *repository.RoundRepository
	winnerRepo  *repository.WinnerRepository
	giftRepo    *repository.GiftRepository
	catalog     *Catalog
	ledger      *Ledger
	inventory   *Inventory
	boosts      *BoostRegistry
	runner      *txRunner
	audit       audit.Sink

	intn func(n int) int // 返回 [0, n) 的随机数
	now  func() time.Time
}

// NewSelector 创建抽奖服务
func NewSelector(db *gorm.DB, catalog *Catalog, ledger *Ledger, inventory *Inventory, boosts *BoostRegistry, runner *txRunner, sink audit.Sink) *Selector {
	return &Selector{
		sessionRepo: repository.NewSessionRepository(db),
		roundRepo:   repository.NewRoundRepository(db),
		winnerRepo:  repository.NewWinnerRepository(db),
		giftRepo:    repository.NewGiftRepository(db),
		catalog:     catalog,
		ledger:      ledger,
		inventory:   inventory,
		boosts:      boosts,
		runner:      runner,
		audit:       sink,
		intn:        rand.Intn,
		now:         time.Now,
	}
}

// Draw 抽出下一个中奖者
// 整个过程在一个事务内完成：锁定场次与本轮库存，优先使用指定中奖，否则按剩余数量加权随机
func (s *Selector) Draw(ctx context.Context, req *DrawRequest) (*DrawResult, error) {
	if req == nil || req.SessionID == 0 {
		return nil, ErrSessionNotFound
	}
	if err := requireActor(req.ActorID); err != nil {
		return nil, err
	}
	if err := req.Customer.validate(); err != nil {
		return nil, err
	}

	var result *DrawResult
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		// 每次尝试重新计算，失败的尝试不留下任何结果
		r, err := s.draw(tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		logger.Debug().Err(err).Uint("session", req.SessionID).Msg("抽奖失败")
		return nil, err
	}

	if name, err := s.giftName(result.Winner.GiftID); err == nil {
		result.GiftName = name
	}
	s.record(req.ActorID, result)

	logger.Info().
		Uint("session", req.SessionID).
		Int("slot", result.Winner.RoundNumber).
		Uint("gift", result.Winner.GiftID).
		Bool("boosted", result.Winner.Boosted).
		Int("cycle", result.BreakdownRound).
		Msg("已抽出中奖者")

	return result, nil
}

func (s *Selector) draw(tx *gorm.DB, req *DrawRequest) (*DrawResult, error) {
	session, err := lockOwnedSession(tx, s.sessionRepo, req.ActorID, req.SessionID)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.catalog.loadBreakdown(tx, session.BreakdownID)
	if err != nil {
		return nil, err
	}

	round, created, err := s.ledger.ensureCurrentRound(tx, session, breakdown)
	if err != nil {
		return nil, err
	}
	gifts, err := s.roundRepo.WithTx(tx).LockGifts(round.ID)
	if err != nil {
		return nil, err
	}

	winners, err := s.winnerRepo.WithTx(tx).MaxSlot(session.ID)
	if err != nil {
		return nil, err
	}
	slot := winners + 1

	result := &DrawResult{Round: *round, RoundCreated: created}

	var giftID uint
	boosted := false

	boost, err := s.boosts.resolve(tx, session.ID, slot)
	if err != nil {
		return nil, err
	}
	if boost != nil {
		err := s.inventory.Commit(tx, round.ID, boost.GiftID, 1)
		switch {
		case err == nil:
			giftID = boost.GiftID
			boosted = true
			result.BoostConsumed = boost
		case errors.Is(err, ErrInsufficientInventory):
			// 库存已不足，作废后按加权随机继续
			result.BoostDiscarded = boost
		default:
			return nil, err
		}
		if err := s.boosts.consume(tx, boost); err != nil {
			return nil, err
		}
	}

	if !boosted {
		candidates := make([]models.RoundGift, 0, len(gifts))
		for _, g := range gifts {
			if g.Remaining() > 0 {
				candidates = append(candidates, g)
			}
		}
		total := totalRemaining(candidates)
		if total == 0 {
			return nil, ErrRoundExhausted
		}

		picked, ok := pickWeighted(candidates, s.intn(total))
		if !ok {
			return nil, ErrRoundExhausted
		}
		if err := s.inventory.Commit(tx, round.ID, picked, 1); err != nil {
			return nil, err
		}
		giftID = picked
	}

	winner := models.GiftWinner{
		SessionID:   session.ID,
		RoundID:     round.ID,
		RoundNumber: slot,
		GiftID:      giftID,
		Boosted:     boosted,
		WinTime:     s.now(),
	}
	if session.CollectCustomerInfo && req.Customer != nil {
		winner.WinnerName = optional(req.Customer.Name)
		winner.WinnerPhone = optional(req.Customer.Phone)
		winner.WinnerEmail = optional(req.Customer.Email)
	}
	if err := s.winnerRepo.WithTx(tx).Create(&winner); err != nil {
		if isDuplicateKey(err) {
			return nil, errSlotConflict
		}
		return nil, err
	}

	// breakdown_round 只是缓存，跨轮次时刷新
	cycle := CycleOf(slot, breakdown.TotalNumber)
	if cycle != session.BreakdownRound {
		if err := s.sessionRepo.WithTx(tx).SetBreakdownRound(session.ID, cycle); err != nil {
			return nil, err
		}
	}

	result.Winner = winner
	result.BreakdownRound = cycle
	return result, nil
}

func (s *Selector) giftName(giftID uint) (string, error) {
	gift, err := s.giftRepo.GetByID(giftID)
	if err != nil {
		return "", err
	}
	return gift.Name, nil
}

// record 事务提交后写审计
func (s *Selector) record(actorID int64, result *DrawResult) {
	if result.RoundCreated {
		s.ledger.recordRoundCreate(actorID, &result.Round)
	}
	if b := result.BoostConsumed; b != nil {
		s.audit.Record(actorID, audit.ActionBoostConsume, map[string]any{
			"session_id":   b.SessionID,
			"boost_id":     b.ID,
			"target_round": b.TargetRound,
		})
	}
	if b := result.BoostDiscarded; b != nil {
		s.audit.Record(actorID, audit.ActionBoostDiscard, map[string]any{
			"session_id":   b.SessionID,
			"boost_id":     b.ID,
			"gift_id":      b.GiftID,
			"target_round": b.TargetRound,
		})
	}
	s.audit.Record(actorID, audit.ActionDraw, map[string]any{
		"session_id": result.Winner.SessionID,
		"slot":       result.Winner.RoundNumber,
		"gift_id":    result.Winner.GiftID,
		"gift":       result.GiftName,
		"boosted":    result.Winner.Boosted,
		"cycle":      result.BreakdownRound,
	})
}

// optional 空字符串不保存
func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
