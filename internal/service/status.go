// Package service 场次状态查询
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"github.com/smysle/gift-shuffle-go/internal/database/repository"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultWinnersLimit = 50
	maxWinnersLimit     = 200
)

// Status 场次状态，所有字段均由已持久化的数据推算
type Status struct {
	SessionID           uint   `json:"session_id"`
	Active              bool   `json:"active"`
	WinnersCount        int    `json:"winners_count"`
	CurrentRoundNumber  int    `json:"current_round_number"` // 全局名额序号
	BreakdownRound      int    `json:"breakdown_round"`      // 循环轮次
	RoundID             uint   `json:"round_id"`
	RoundNumber         int    `json:"round_number"`
	TotalNumber         int    `json:"total_number"`
	GiftsInCurrentRound int    `json:"gifts_in_current_round"`
	GiftsRemaining      int    `json:"gifts_remaining"`
	StockTotal          int    `json:"stock_total"`
	StockUsed           int    `json:"stock_used"`
	StockRemaining      int    `json:"stock_remaining"`
	Progress            string `json:"progress"` // 本轮库存消耗百分比
}

// WinnerView 对外展示的中奖记录，不含中奖者个人信息
type WinnerView struct {
	Slot           int       `json:"slot"`
	BreakdownRound int       `json:"breakdown_round"`
	RoundID        uint      `json:"round_id"`
	GiftID         uint      `json:"gift_id"`
	GiftName       string    `json:"gift_name"`
	Boosted        bool      `json:"boosted"`
	WinTime        time.Time `json:"win_time"`
}

// LatestWinner 增量查询结果
type LatestWinner struct {
	NewWinner    bool        `json:"new_winner"`
	CurrentRound int         `json:"current_round"`
	Winner       *WinnerView `json:"winner,omitempty"`
}

// RoundGiftView 轮次库存明细
type RoundGiftView struct {
	GiftID            uint   `json:"gift_id"`
	Name              string `json:"name"`
	QuantityAvailable int    `json:"quantity_available"`
	QuantityUsed      int    `json:"quantity_used"`
	Remaining         int    `json:"remaining"`
}

// StatusProjector 只读查询，不加锁不写库
type StatusProjector struct {
	sessionRepo *repository.SessionRepository
	roundRepo   *repository.RoundRepository
	winnerRepo  *repository.WinnerRepository
	giftRepo    *repository.GiftRepository
	catalog     *Catalog
}

// NewStatusProjector 创建状态查询服务
func NewStatusProjector(db *gorm.DB, catalog *Catalog) *StatusProjector {
	return &StatusProjector{
		sessionRepo: repository.NewSessionRepository(db),
		roundRepo:   repository.NewRoundRepository(db),
		winnerRepo:  repository.NewWinnerRepository(db),
		giftRepo:    repository.NewGiftRepository(db),
		catalog:     catalog,
	}
}

// Status 获取场次状态
func (p *StatusProjector) Status(sessionID uint) (*Status, error) {
	session, err := p.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	breakdown, err := p.catalog.GetBreakdown(session.BreakdownID)
	if err != nil {
		return nil, err
	}
	winners, err := p.winnerRepo.MaxSlot(session.ID)
	if err != nil {
		return nil, err
	}

	total := breakdown.TotalNumber
	inRound := SlotInCycle(winners, total)
	status := &Status{
		SessionID:           session.ID,
		Active:              session.IsActive(),
		WinnersCount:        winners,
		CurrentRoundNumber:  winners,
		BreakdownRound:      CycleOf(winners, total),
		TotalNumber:         total,
		GiftsInCurrentRound: inRound,
		GiftsRemaining:      total - inRound,
		Progress:            percent(0, 0),
	}

	if session.BreakdownRound != status.BreakdownRound {
		logger.Debug().
			Uint("session", session.ID).
			Int("cached", session.BreakdownRound).
			Int("actual", status.BreakdownRound).
			Msg("缓存的循环轮次已过期")
	}

	round, err := p.roundRepo.Latest(session.ID)
	switch {
	case err == nil:
		available, used, err := p.roundRepo.Usage(round.ID)
		if err != nil {
			return nil, err
		}
		status.RoundID = round.ID
		status.RoundNumber = round.RoundNumber
		status.StockTotal = available
		status.StockUsed = used
		status.StockRemaining = max(available-used, 0)
		status.Progress = percent(used, available)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}

	return status, nil
}

// LatestWinner 按调用方已知的名额序号返回是否有新的中奖者
func (p *StatusProjector) LatestWinner(sessionID uint, lastKnownSlot int) (*LatestWinner, error) {
	if lastKnownSlot < 0 {
		return nil, fmt.Errorf("%w: last_known_slot 不能为负数", ErrInvalidArgument)
	}
	session, err := p.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	winners, err := p.winnerRepo.MaxSlot(session.ID)
	if err != nil {
		return nil, err
	}

	result := &LatestWinner{CurrentRound: winners}
	if winners <= lastKnownSlot {
		return result, nil
	}

	winner, err := p.winnerRepo.GetBySlot(session.ID, winners)
	if err != nil {
		return nil, err
	}
	views, err := p.views(session, []models.GiftWinner{*winner})
	if err != nil {
		return nil, err
	}

	result.NewWinner = true
	result.Winner = &views[0]
	return result, nil
}

// Winners 分页获取中奖记录，按名额序号升序
func (p *StatusProjector) Winners(sessionID uint, afterSlot, limit int) ([]WinnerView, error) {
	if afterSlot < 0 {
		return nil, fmt.Errorf("%w: after 不能为负数", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultWinnersLimit
	}
	if limit > maxWinnersLimit {
		limit = maxWinnersLimit
	}

	session, err := p.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	winners, err := p.winnerRepo.ListAfter(session.ID, afterSlot, limit)
	if err != nil {
		return nil, err
	}
	return p.views(session, winners)
}

// RoundGifts 获取轮次库存明细
func (p *StatusProjector) RoundGifts(roundID uint) ([]RoundGiftView, error) {
	if _, err := p.roundRepo.GetByID(roundID); err != nil {
		return nil, notFound(err, ErrRoundNotFound)
	}
	gifts, err := p.roundRepo.Gifts(roundID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(gifts))
	for _, g := range gifts {
		ids = append(ids, g.GiftID)
	}
	names, err := p.giftRepo.NamesByIDs(ids)
	if err != nil {
		return nil, err
	}

	views := make([]RoundGiftView, 0, len(gifts))
	for i := range gifts {
		g := &gifts[i]
		views = append(views, RoundGiftView{
			GiftID:            g.GiftID,
			Name:              names[g.GiftID],
			QuantityAvailable: g.QuantityAvailable,
			QuantityUsed:      g.QuantityUsed,
			Remaining:         g.Remaining(),
		})
	}
	return views, nil
}

func (p *StatusProjector) views(session *models.ShuffleSession, winners []models.GiftWinner) ([]WinnerView, error) {
	breakdown, err := p.catalog.GetBreakdown(session.BreakdownID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(winners))
	for _, w := range winners {
		ids = append(ids, w.GiftID)
	}
	names, err := p.giftRepo.NamesByIDs(ids)
	if err != nil {
		return nil, err
	}

	views := make([]WinnerView, 0, len(winners))
	for _, w := range winners {
		views = append(views, WinnerView{
			Slot:           w.RoundNumber,
			BreakdownRound: CycleOf(w.RoundNumber, breakdown.TotalNumber),
			RoundID:        w.RoundID,
			GiftID:         w.GiftID,
			GiftName:       names[w.GiftID],
			Boosted:        w.Boosted,
			WinTime:        w.WinTime,
		})
	}
	return views, nil
}

// percent 计算百分比，保留两位小数
func percent(part, whole int) string {
	if whole <= 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		StringFixed(2)
}
