package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/service"
)

type fakeDrawer struct {
	mu    sync.Mutex
	err   error
	calls []service.DrawRequest
}

func (f *fakeDrawer) Draw(_ context.Context, req *service.DrawRequest) (*service.DrawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.DrawResult{Winner: models.GiftWinner{SessionID: req.SessionID, RoundNumber: len(f.calls)}}, nil
}

type fakeSessions struct {
	auto       []models.ShuffleSession
	active     []models.ShuffleSession
	reconciled []uint
}

func (f *fakeSessions) ListAutoAdvance() ([]models.ShuffleSession, error) { return f.auto, nil }
func (f *fakeSessions) ListActive() ([]models.ShuffleSession, error)      { return f.active, nil }
func (f *fakeSessions) ReconcileCycle(id uint) (int, error) {
	f.reconciled = append(f.reconciled, id)
	if id == 0 {
		return 0, errors.New("bad id")
	}
	return 1, nil
}

func newTestScheduler(drawer Drawer, sessions SessionSource) *Scheduler {
	cfg := config.Default()
	cfg.Scheduler.AutoAdvance = true
	return New(cfg, drawer, sessions)
}

func TestScheduler_SyncAutoAdvance(t *testing.T) {
	sessions := &fakeSessions{auto: []models.ShuffleSession{
		{ID: 1, CreatedBy: 10, AutoAdvanceSeconds: 5},
		{ID: 2, CreatedBy: 20, AutoAdvanceSeconds: 1}, // 低于最小间隔
	}}
	s := newTestScheduler(&fakeDrawer{}, sessions)

	require.NoError(t, s.RunNow("sync"))
	assert.Equal(t, 2, s.Scheduled())
	assert.Equal(t, 5, s.jobs[1])
	assert.Equal(t, s.cfg.MinIntervalSeconds, s.jobs[2])
	assert.Len(t, s.cron.Jobs(), 2)

	// 重复同步不重复注册
	require.NoError(t, s.RunNow("sync"))
	assert.Len(t, s.cron.Jobs(), 2)

	// 关闭自动抽奖的场次被移除
	sessions.auto = sessions.auto[:1]
	require.NoError(t, s.RunNow("sync"))
	assert.Equal(t, 1, s.Scheduled())
	assert.Len(t, s.cron.Jobs(), 1)
}

func TestScheduler_AdvanceActsAsOwner(t *testing.T) {
	drawer := &fakeDrawer{}
	s := newTestScheduler(drawer, &fakeSessions{})

	s.advance(3, 30)

	require.Len(t, drawer.calls, 1)
	assert.Equal(t, uint(3), drawer.calls[0].SessionID)
	assert.Equal(t, int64(30), drawer.calls[0].ActorID)
}

func TestScheduler_AdvanceStopsWhenSessionEnds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		removed bool
	}{
		{"场次已结束", service.ErrSessionNotActive, true},
		{"配置停用", service.ErrBreakdownInactive, true},
		{"并发冲突保留任务", service.ErrConcurrentDraw, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{auto: []models.ShuffleSession{{ID: 7, CreatedBy: 1, AutoAdvanceSeconds: 5}}}
			s := newTestScheduler(&fakeDrawer{err: tt.err}, sessions)
			require.NoError(t, s.RunNow("sync"))

			s.advance(7, 1)

			if tt.removed {
				assert.Equal(t, 0, s.Scheduled())
			} else {
				assert.Equal(t, 1, s.Scheduled())
			}
		})
	}
}

func TestScheduler_Reconcile(t *testing.T) {
	sessions := &fakeSessions{active: []models.ShuffleSession{{ID: 1}, {ID: 0}, {ID: 3}}}
	s := newTestScheduler(&fakeDrawer{}, sessions)

	require.NoError(t, s.RunNow("reconcile"))
	assert.Equal(t, []uint{1, 0, 3}, sessions.reconciled, "单个失败不影响其他场次")

	assert.Error(t, s.RunNow("unknown"))
}

func TestScheduler_StartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.AutoAdvance = true
	cfg.Scheduler.ReconcileMinutes = 5
	s := New(cfg, &fakeDrawer{}, &fakeSessions{})

	s.Start()
	assert.Len(t, s.cron.Jobs(), 2)
	s.Stop()
}
