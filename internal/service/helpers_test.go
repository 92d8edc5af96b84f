package service

import (
	"context"
	"sync"
	"testing"

	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/database"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	operator int64 = 1001
	stranger int64 = 2002
)

type recordingSink struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingSink) Record(_ int64, action string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingSink) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.actions {
		if a == action {
			n++
		}
	}
	return n
}

type fixture struct {
	db   *gorm.DB
	cfg  *config.Config
	svc  *Services
	sink *recordingSink
	ctx  context.Context
}

// newFixture 使用内存 SQLite 组装完整服务，每个测试独立一个库
func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = "file::memory:"
	cfg.Draw.BackoffInitialMs = 1

	db, err := database.Open(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	sink := &recordingSink{}
	return &fixture{
		db:   db,
		cfg:  cfg,
		svc:  New(db, cfg, sink),
		sink: sink,
		ctx:  context.Background(),
	}
}

// fixedPick 替换随机数来源，返回 0 时总是选中 gift_id 最小的候选
func (f *fixture) fixedPick(value func(n int) int) {
	f.svc.Selector.intn = value
}

func (f *fixture) gifts(t *testing.T, names ...string) []models.Gift {
	t.Helper()
	gifts := make([]models.Gift, 0, len(names))
	for _, name := range names {
		g, err := f.svc.Gifts.CreateGift(operator, name, "")
		require.NoError(t, err)
		gifts = append(gifts, *g)
	}
	return gifts
}

// breakdown 创建奖品配置，quantities 与 gifts 一一对应，名额为数量之和
func (f *fixture) breakdown(t *testing.T, gifts []models.Gift, quantities ...int) *models.GiftBreakdown {
	t.Helper()
	require.Len(t, quantities, len(gifts))

	req := &CreateBreakdownRequest{Name: "测试配置"}
	for i, g := range gifts {
		req.Gifts = append(req.Gifts, Allotment{GiftID: g.ID, Quantity: quantities[i]})
		req.TotalNumber += quantities[i]
	}
	b, err := f.svc.Catalog.CreateBreakdown(f.ctx, operator, req)
	require.NoError(t, err)
	return b
}

func (f *fixture) session(t *testing.T, breakdownID uint, collect bool) *models.ShuffleSession {
	t.Helper()
	s, err := f.svc.Sessions.StartSession(f.ctx, operator, &StartSessionRequest{
		BreakdownID:         breakdownID,
		CollectCustomerInfo: collect,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) draw(t *testing.T, sessionID uint) *DrawResult {
	t.Helper()
	r, err := f.svc.Selector.Draw(f.ctx, &DrawRequest{SessionID: sessionID, ActorID: operator})
	require.NoError(t, err)
	return r
}

func (f *fixture) winners(t *testing.T, sessionID uint) []models.GiftWinner {
	t.Helper()
	var winners []models.GiftWinner
	require.NoError(t, f.db.Where("session_id = ?", sessionID).Order("round_number ASC").Find(&winners).Error)
	return winners
}

func (f *fixture) roundGifts(t *testing.T, roundID uint) []models.RoundGift {
	t.Helper()
	gifts, err := f.svc.Inventory.Gifts(roundID)
	require.NoError(t, err)
	return gifts
}

// assertGapless 中奖名额从 1 开始连续不重复
func assertGapless(t *testing.T, winners []models.GiftWinner) {
	t.Helper()
	for i, w := range winners {
		require.Equal(t, i+1, w.RoundNumber, "名额序号应连续")
	}
}

// assertWithinStock 所有轮次的已用数量不超过可用数量
func (f *fixture) assertWithinStock(t *testing.T) {
	t.Helper()
	var gifts []models.RoundGift
	require.NoError(t, f.db.Find(&gifts).Error)
	for _, g := range gifts {
		require.LessOrEqual(t, g.QuantityUsed, g.QuantityAvailable, "round %d gift %d", g.RoundID, g.GiftID)
	}
}
