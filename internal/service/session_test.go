package service

import (
	"testing"

	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_StartSession(t *testing.T) {
	f := newFixture(t)
	b := f.breakdown(t, f.gifts(t, "A", "B"), 3, 2)

	_, err := f.svc.Sessions.StartSession(f.ctx, operator, &StartSessionRequest{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.Sessions.StartSession(f.ctx, operator, &StartSessionRequest{BreakdownID: 9999})
	assert.ErrorIs(t, err, ErrBreakdownNotFound)

	_, err = f.svc.Sessions.StartSession(f.ctx, stranger, &StartSessionRequest{BreakdownID: b.ID})
	assert.ErrorIs(t, err, ErrPermission)

	_, err = f.svc.Sessions.StartSession(f.ctx, operator, &StartSessionRequest{BreakdownID: b.ID, AutoAdvanceSeconds: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument, "小于最小间隔")

	s1 := f.session(t, b.ID, false)
	s2 := f.session(t, b.ID, true)
	assert.Equal(t, models.SessionActive, s1.Status)
	assert.Len(t, s1.AccessCode, 10)
	assert.NotEqual(t, s1.AccessCode, s2.AccessCode)
	assert.Equal(t, 1, s1.BreakdownRound)

	// 开始场次时已创建第一轮
	round, err := f.svc.Ledger.CurrentRound(s1.ID)
	require.NoError(t, err)
	require.NotNil(t, round)
	assert.Equal(t, 1, round.RoundNumber)
	assert.Equal(t, 2, f.sink.count("session_start"))
	assert.Equal(t, 2, f.sink.count("round_create"))
}

func TestSessionService_CompleteSession(t *testing.T) {
	f := newFixture(t)
	b := f.breakdown(t, f.gifts(t, "A", "B"), 3, 2)
	s := f.session(t, b.ID, false)
	round, err := f.svc.Ledger.CurrentRound(s.ID)
	require.NoError(t, err)

	_, err = f.svc.Boosts.Register(f.ctx, operator, &RegisterBoostRequest{
		SessionID: s.ID, RoundID: round.ID, GiftID: b.Gifts[0].GiftID, TargetRound: 2,
	})
	require.NoError(t, err)

	_, err = f.svc.Sessions.CompleteSession(f.ctx, stranger, s.ID)
	assert.ErrorIs(t, err, ErrPermission)

	done, err := f.svc.Sessions.CompleteSession(f.ctx, operator, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	boosts, err := f.svc.Boosts.List(operator, s.ID)
	require.NoError(t, err)
	assert.Empty(t, boosts, "结束场次应删除未生效的指定中奖")

	_, err = f.svc.Sessions.CompleteSession(f.ctx, operator, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = f.svc.Selector.Draw(f.ctx, &DrawRequest{SessionID: s.ID, ActorID: operator})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = f.svc.Ledger.EnsureCurrentRound(f.ctx, operator, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)

	status, err := f.svc.Status.Status(s.ID)
	require.NoError(t, err)
	assert.False(t, status.Active)
}

func TestSessionService_GetAndList(t *testing.T) {
	f := newFixture(t)
	b := f.breakdown(t, f.gifts(t, "A"), 1)
	s := f.session(t, b.ID, false)

	got, err := f.svc.Sessions.GetSession(operator, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.AccessCode, got.AccessCode)

	_, err = f.svc.Sessions.GetSession(stranger, s.ID)
	assert.ErrorIs(t, err, ErrPermission)

	_, err = f.svc.Sessions.GetSession(operator, 9999)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	list, err := f.svc.Sessions.ListSessions(operator)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.Sessions.ListSessions(stranger)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessionService_SetAutoAdvance(t *testing.T) {
	f := newFixture(t)
	b := f.breakdown(t, f.gifts(t, "A"), 5)
	s := f.session(t, b.ID, false)

	_, err := f.svc.Sessions.SetAutoAdvance(f.ctx, operator, s.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.Sessions.SetAutoAdvance(f.ctx, operator, s.ID, f.cfg.Scheduler.MinIntervalSeconds-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.Sessions.SetAutoAdvance(f.ctx, stranger, s.ID, 10)
	assert.ErrorIs(t, err, ErrPermission)

	updated, err := f.svc.Sessions.SetAutoAdvance(f.ctx, operator, s.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.AutoAdvanceSeconds)

	list, err := f.svc.Sessions.ListAutoAdvance()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)

	_, err = f.svc.Sessions.CompleteSession(f.ctx, operator, s.ID)
	require.NoError(t, err)

	list, err = f.svc.Sessions.ListAutoAdvance()
	require.NoError(t, err)
	assert.Empty(t, list, "已结束的场次不再自动抽奖")
}

func TestSessionService_ReconcileCycle(t *testing.T) {
	f := newFixture(t)
	b := f.breakdown(t, f.gifts(t, "A", "B"), 1, 1)
	s := f.session(t, b.ID, false)

	for i := 0; i < 3; i++ {
		f.draw(t, s.ID)
	}

	// 人为写坏缓存
	require.NoError(t, f.db.Model(&models.ShuffleSession{}).Where("id = ?", s.ID).Update("breakdown_round", 7).Error)

	status, err := f.svc.Status.Status(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.BreakdownRound, "查询按中奖数推算，不读缓存")

	cycle, err := f.svc.Sessions.ReconcileCycle(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cycle)

	stored, err := f.svc.Sessions.GetSession(operator, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.BreakdownRound)

	_, err = f.svc.Sessions.ReconcileCycle(9999)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
