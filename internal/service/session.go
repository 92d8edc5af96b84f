// Package service 抽奖场次
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"github.com/smysle/gift-shuffle-go/pkg/utils"
	"gorm.io/gorm"
)

// StartSessionRequest 开始场次请求
type StartSessionRequest struct {
	BreakdownID         uint `json:"breakdown_id"`
	CollectCustomerInfo bool `json:"collect_customer_info"`
	AutoAdvanceSeconds  int  `json:"auto_advance_seconds"`
}

// SessionService 场次服务
type SessionService struct {
	sessionRepo *repository.SessionRepository
	boostRepo   *repository.BoostRepository
	winnerRepo  *repository.WinnerRepository
	catalog     *Catalog
	ledger      *Ledger
	runner      *txRunner
	audit       audit.Sink
	cfg         config.SchedulerConfig
}

// NewSessionService 创建场次服务
func NewSessionService(db *gorm.DB, cfg config.SchedulerConfig, catalog *Catalog, ledger *Ledger, runner *txRunner, sink audit.Sink) *SessionService {
	return &SessionService{
		sessionRepo: repository.NewSessionRepository(db),
		boostRepo:   repository.NewBoostRepository(db),
		winnerRepo:  repository.NewWinnerRepository(db),
		catalog:     catalog,
		ledger:      ledger,
		runner:      runner,
		audit:       sink,
		cfg:         cfg,
	}
}

// StartSession 开始场次并创建第一轮
func (s *SessionService) StartSession(ctx context.Context, actorID int64, req *StartSessionRequest) (*models.ShuffleSession, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if req == nil || req.BreakdownID == 0 {
		return nil, fmt.Errorf("%w: 缺少奖品配置", ErrInvalidArgument)
	}
	if err := s.validateInterval(req.AutoAdvanceSeconds); err != nil {
		return nil, err
	}

	var (
		session *models.ShuffleSession
		round   *models.BreakdownRound
	)
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		breakdown, err := s.catalog.lockBreakdown(tx, req.BreakdownID)
		if err != nil {
			return err
		}
		if breakdown.CreatedBy != actorID {
			return ErrPermission
		}
		if !breakdown.IsActive {
			return ErrBreakdownInactive
		}

		session = &models.ShuffleSession{
			BreakdownID:         breakdown.ID,
			Status:              models.SessionActive,
			AccessCode:          utils.GenerateAccessCode(),
			CollectCustomerInfo: req.CollectCustomerInfo,
			BreakdownRound:      1,
			AutoAdvanceSeconds:  req.AutoAdvanceSeconds,
			CreatedBy:           actorID,
		}
		if err := s.sessionRepo.WithTx(tx).Create(session); err != nil {
			return fmt.Errorf("创建场次失败: %w", err)
		}

		round, _, err = s.ledger.ensureCurrentRound(tx, session, breakdown)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(actorID, audit.ActionSessionStart, map[string]any{
		"session_id":   session.ID,
		"breakdown_id": session.BreakdownID,
	})
	s.ledger.recordRoundCreate(actorID, round)

	logger.Info().
		Uint("session", session.ID).
		Uint("breakdown", session.BreakdownID).
		Int64("actor", actorID).
		Msg("场次已开始")

	return session, nil
}

// CompleteSession 结束场次，未生效的指定中奖一并删除
func (s *SessionService) CompleteSession(ctx context.Context, actorID int64, sessionID uint) (*models.ShuffleSession, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	var (
		session *models.ShuffleSession
		dropped int64
	)
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		sess, err := lockOwnedSession(tx, s.sessionRepo, actorID, sessionID)
		if err != nil {
			return err
		}

		now := time.Now()
		ok, err := s.sessionRepo.WithTx(tx).Complete(sess.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionNotActive
		}
		if dropped, err = s.boostRepo.WithTx(tx).DeleteBySession(sess.ID); err != nil {
			return err
		}

		sess.Status = models.SessionCompleted
		sess.CompletedAt = &now
		sess.AutoAdvanceSeconds = 0
		session = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(actorID, audit.ActionSessionComplete, map[string]any{
		"session_id":     session.ID,
		"dropped_boosts": dropped,
	})
	logger.Info().Uint("session", session.ID).Int64("dropped_boosts", dropped).Msg("场次已结束")
	return session, nil
}

// GetSession 获取场次，仅创建者可查看
func (s *SessionService) GetSession(actorID int64, sessionID uint) (*models.ShuffleSession, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	if !session.IsOwnedBy(actorID) {
		return nil, ErrPermission
	}
	return session, nil
}

// ListSessions 获取操作员的场次
func (s *SessionService) ListSessions(actorID int64) ([]models.ShuffleSession, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.sessionRepo.ListByOwner(actorID)
}

// SetAutoAdvance 设置自动抽奖间隔，0 表示关闭
func (s *SessionService) SetAutoAdvance(ctx context.Context, actorID int64, sessionID uint, seconds int) (*models.ShuffleSession, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if err := s.validateInterval(seconds); err != nil {
		return nil, err
	}

	var session *models.ShuffleSession
	err := s.runner.Run(ctx, func(tx *gorm.DB) error {
		sess, err := lockOwnedSession(tx, s.sessionRepo, actorID, sessionID)
		if err != nil {
			return err
		}
		if err := s.sessionRepo.WithTx(tx).SetAutoAdvance(sess.ID, seconds); err != nil {
			return err
		}
		sess.AutoAdvanceSeconds = seconds
		session = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(actorID, audit.ActionAutoAdvance, map[string]any{
		"session_id": session.ID,
		"seconds":    seconds,
	})
	return session, nil
}

// ListAutoAdvance 获取开启自动抽奖的进行中场次
func (s *SessionService) ListAutoAdvance() ([]models.ShuffleSession, error) {
	return s.sessionRepo.ListAutoAdvance()
}

// ListActive 获取所有进行中的场次
func (s *SessionService) ListActive() ([]models.ShuffleSession, error) {
	return s.sessionRepo.ListActive()
}

// ReconcileCycle 按中奖数重新计算缓存的循环轮次，返回最新值
func (s *SessionService) ReconcileCycle(sessionID uint) (int, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return 0, notFound(err, ErrSessionNotFound)
	}
	breakdown, err := s.catalog.GetBreakdown(session.BreakdownID)
	if err != nil {
		return 0, err
	}
	winners, err := s.winnerRepo.MaxSlot(session.ID)
	if err != nil {
		return 0, err
	}

	cycle := CycleOf(winners, breakdown.TotalNumber)
	if cycle == session.BreakdownRound {
		return cycle, nil
	}
	if err := s.sessionRepo.SetBreakdownRound(session.ID, cycle); err != nil {
		return 0, err
	}

	logger.Info().
		Uint("session", session.ID).
		Int("cached", session.BreakdownRound).
		Int("cycle", cycle).
		Msg("已校正循环轮次")
	return cycle, nil
}

func (s *SessionService) validateInterval(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w: 自动抽奖间隔不能为负数", ErrInvalidArgument)
	}
	if seconds > 0 && seconds < s.cfg.MinIntervalSeconds {
		return fmt.Errorf("%w: 自动抽奖间隔不能小于 %d 秒", ErrInvalidArgument, s.cfg.MinIntervalSeconds)
	}
	return nil
}
