// Package service 轮次账本
package service

import (
	"context"
	"errors"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"gorm.io/gorm"
)

// Ledger 管理场次的轮次，轮次只通过 ensureCurrentRound 创建
type Ledger struct {
	roundRepo   *repository.RoundRepository
	sessionRepo *repository.SessionRepository
	catalog     *Catalog
	runner      *txRunner
	audit       audit.Sink
}

// NewLedger 创建轮次账本
func NewLedger(db *gorm.DB, catalog *Catalog, runner *txRunner, sink audit.Sink) *Ledger {
	return &Ledger{
		roundRepo:   repository.NewRoundRepository(db),
		sessionRepo: repository.NewSessionRepository(db),
		catalog:     catalog,
		runner:      runner,
		audit:       sink,
	}
}

// CurrentRound 获取场次当前可用的轮次，没有轮次或最新轮次已抽完时返回 nil
func (l *Ledger) CurrentRound(sessionID uint) (*models.BreakdownRound, error) {
	session, err := l.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	breakdown, err := l.catalog.GetBreakdown(session.BreakdownID)
	if err != nil {
		return nil, err
	}

	round, err := l.roundRepo.Latest(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	usable, err := roundUsable(l.roundRepo, round, breakdown)
	if err != nil || !usable {
		return nil, err
	}
	return round, nil
}

// EnsureResult 确保轮次的结果
type EnsureResult struct {
	Round   *models.BreakdownRound `json:"round"`
	Created bool                   `json:"created"`
}

// EnsureCurrentRound 返回可用轮次，必要时创建下一轮；重复调用结果不变
func (l *Ledger) EnsureCurrentRound(ctx context.Context, actorID int64, sessionID uint) (*EnsureResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	var result *EnsureResult
	err := l.runner.Run(ctx, func(tx *gorm.DB) error {
		session, err := lockOwnedSession(tx, l.sessionRepo, actorID, sessionID)
		if err != nil {
			return err
		}
		breakdown, err := l.catalog.loadBreakdown(tx, session.BreakdownID)
		if err != nil {
			return err
		}
		if !breakdown.IsActive {
			return ErrBreakdownInactive
		}

		round, created, err := l.ensureCurrentRound(tx, session, breakdown)
		if err != nil {
			return err
		}
		result = &EnsureResult{Round: round, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		l.recordRoundCreate(actorID, result.Round)
	}
	return result, nil
}

// ensureCurrentRound 调用方需已持有场次行锁
// 最新轮次仍有名额时原样返回，否则按配置复制库存创建下一轮
func (l *Ledger) ensureCurrentRound(tx *gorm.DB, session *models.ShuffleSession, breakdown *models.GiftBreakdown) (*models.BreakdownRound, bool, error) {
	if !session.IsActive() {
		return nil, false, ErrSessionNotActive
	}
	if !breakdown.IsActive {
		return nil, false, ErrBreakdownInactive
	}

	repo := l.roundRepo.WithTx(tx)
	next := 1

	latest, err := repo.Latest(session.ID)
	switch {
	case err == nil:
		usable, err := roundUsable(repo, latest, breakdown)
		if err != nil {
			return nil, false, err
		}
		if usable {
			return latest, false, nil
		}
		next = latest.RoundNumber + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, false, err
	}

	round := &models.BreakdownRound{
		SessionID:   session.ID,
		BreakdownID: breakdown.ID,
		RoundNumber: next,
	}
	gifts := make([]models.RoundGift, 0, len(breakdown.Gifts))
	for _, g := range breakdown.Gifts {
		gifts = append(gifts, models.RoundGift{
			GiftID:            g.GiftID,
			QuantityAvailable: g.Quantity,
		})
	}
	if err := repo.CreateWithGifts(round, gifts); err != nil {
		if isDuplicateKey(err) {
			return nil, false, errSlotConflict
		}
		return nil, false, err
	}

	logger.Info().
		Uint("session", session.ID).
		Uint("round", round.ID).
		Int("round_number", round.RoundNumber).
		Msg("已创建新一轮")
	return round, true, nil
}

func (l *Ledger) recordRoundCreate(actorID int64, round *models.BreakdownRound) {
	l.audit.Record(actorID, audit.ActionRoundCreate, map[string]any{
		"session_id":   round.SessionID,
		"round_id":     round.ID,
		"round_number": round.RoundNumber,
	})
}

// roundUsable 轮次是否还有可抽名额
func roundUsable(repo *repository.RoundRepository, round *models.BreakdownRound, breakdown *models.GiftBreakdown) (bool, error) {
	available, used, err := repo.Usage(round.ID)
	if err != nil {
		return false, err
	}
	return used < breakdown.TotalNumber && used < available, nil
}

// lockOwnedSession 锁定场次并校验归属与状态
func lockOwnedSession(tx *gorm.DB, repo *repository.SessionRepository, actorID int64, sessionID uint) (*models.ShuffleSession, error) {
	if sessionID == 0 {
		return nil, ErrSessionNotFound
	}
	session, err := repo.WithTx(tx).LockByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	if !session.IsOwnedBy(actorID) {
		return nil, ErrPermission
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}
	return session, nil
}
