// Package scheduler 定时任务调度
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/service"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
)

// syncInterval 同步自动抽奖场次的间隔
const syncInterval = 10 * time.Second

// Drawer 抽奖
type Drawer interface {
	Draw(ctx context.Context, req *service.DrawRequest) (*service.DrawResult, error)
}

// SessionSource 场次查询
type SessionSource interface {
	ListAutoAdvance() ([]models.ShuffleSession, error)
	ListActive() ([]models.ShuffleSession, error)
	ReconcileCycle(sessionID uint) (int, error)
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      config.SchedulerConfig
	drawer   Drawer
	sessions SessionSource
	timeout  time.Duration

	mu   sync.Mutex
	jobs map[uint]int // 场次 ID -> 自动抽奖间隔（秒）
}

// New 创建调度器
func New(cfg *config.Config, drawer Drawer, sessions SessionSource) *Scheduler {
	s := gocron.NewScheduler(cfg.Location())
	s.SetMaxConcurrentJobs(5, gocron.RescheduleMode)

	return &Scheduler{
		cron:     s,
		cfg:      cfg.Scheduler,
		drawer:   drawer,
		sessions: sessions,
		timeout:  time.Duration(cfg.Draw.MaxAttempts*cfg.Draw.LockWaitSeconds) * time.Second,
		jobs:     make(map[uint]int),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info().Msg("启动定时任务调度器")

	// 注册定时任务
	s.registerJobs()

	// 异步启动
	s.cron.StartAsync()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() {
	// 自动抽奖 - 定期同步开启自动抽奖的场次
	if s.cfg.AutoAdvance {
		if _, err := s.cron.Every(syncInterval).Do(s.syncAutoAdvance); err != nil {
			logger.Error().Err(err).Msg("注册自动抽奖同步任务失败")
		} else {
			logger.Info().Dur("interval", syncInterval).Msg("已注册: 自动抽奖同步任务")
		}
	}

	// 循环轮次校正
	if s.cfg.ReconcileMinutes > 0 {
		if _, err := s.cron.Every(s.cfg.ReconcileMinutes).Minutes().Do(s.reconcileCycles); err != nil {
			logger.Error().Err(err).Msg("注册轮次校正任务失败")
		} else {
			logger.Info().Int("minutes", s.cfg.ReconcileMinutes).Msg("已注册: 轮次校正任务")
		}
	}
}

// syncAutoAdvance 按数据库中的设置增删自动抽奖任务
func (s *Scheduler) syncAutoAdvance() {
	sessions, err := s.sessions.ListAutoAdvance()
	if err != nil {
		logger.Error().Err(err).Msg("获取自动抽奖场次失败")
		return
	}

	wanted := make(map[uint]bool, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		wanted[sess.ID] = true
		if err := s.schedule(sess); err != nil {
			logger.Warn().Err(err).Uint("session", sess.ID).Msg("注册自动抽奖失败")
		}
	}

	s.mu.Lock()
	var stale []uint
	for id := range s.jobs {
		if !wanted[id] {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.unschedule(id)
	}
}

// schedule 为场次注册自动抽奖，间隔未变化时不重复注册
func (s *Scheduler) schedule(sess *models.ShuffleSession) error {
	seconds := sess.AutoAdvanceSeconds
	if seconds < s.cfg.MinIntervalSeconds {
		seconds = s.cfg.MinIntervalSeconds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.jobs[sess.ID]; ok && current == seconds {
		return nil
	}

	tag := jobTag(sess.ID)
	_ = s.cron.RemoveByTag(tag)

	_, err := s.cron.Every(seconds).Seconds().
		Tag(tag).
		SingletonMode().
		WaitForSchedule().
		Do(s.advance, sess.ID, sess.CreatedBy)
	if err != nil {
		delete(s.jobs, sess.ID)
		return err
	}

	s.jobs[sess.ID] = seconds
	logger.Info().Uint("session", sess.ID).Int("seconds", seconds).Msg("已开启自动抽奖")
	return nil
}

// unschedule 移除场次的自动抽奖
func (s *Scheduler) unschedule(sessionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[sessionID]; !ok {
		return
	}
	_ = s.cron.RemoveByTag(jobTag(sessionID))
	delete(s.jobs, sessionID)
	logger.Info().Uint("session", sessionID).Msg("已停止自动抽奖")
}

// advance 以场次创建者身份抽奖，场次不可再抽时停止任务
func (s *Scheduler) advance(sessionID uint, actorID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.drawer.Draw(ctx, &service.DrawRequest{SessionID: sessionID, ActorID: actorID})
	switch {
	case err == nil:
		logger.Debug().
			Uint("session", sessionID).
			Int("slot", result.Winner.RoundNumber).
			Msg("自动抽奖完成")
	case errors.Is(err, service.ErrSessionNotActive),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPermission),
		errors.Is(err, service.ErrBreakdownInactive):
		logger.Info().Err(err).Uint("session", sessionID).Msg("场次不可抽奖，停止自动抽奖")
		s.unschedule(sessionID)
	default:
		logger.Warn().Err(err).Uint("session", sessionID).Msg("自动抽奖失败")
	}
}

// reconcileCycles 校正进行中场次缓存的循环轮次
func (s *Scheduler) reconcileCycles() {
	sessions, err := s.sessions.ListActive()
	if err != nil {
		logger.Error().Err(err).Msg("获取进行中场次失败")
		return
	}

	failed := 0
	for _, sess := range sessions {
		if _, err := s.sessions.ReconcileCycle(sess.ID); err != nil {
			failed++
			logger.Warn().Err(err).Uint("session", sess.ID).Msg("校正循环轮次失败")
		}
	}

	logger.Debug().Int("sessions", len(sessions)).Int("failed", failed).Msg("轮次校正完成")
}

// RunNow 立即执行指定任务（用于调试）
func (s *Scheduler) RunNow(taskName string) error {
	switch taskName {
	case "sync":
		s.syncAutoAdvance()
	case "reconcile":
		s.reconcileCycles()
	default:
		return fmt.Errorf("未知任务: %s", taskName)
	}
	return nil
}

// Scheduled 当前已注册自动抽奖的场次数量
func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func jobTag(sessionID uint) string {
	return fmt.Sprintf("session-%d", sessionID)
}
