// Package service 抽奖引擎
package service

import (
	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/pkg/utils"
	"gorm.io/gorm"
)

// Services 抽奖引擎的全部服务
type Services struct {
	Gifts     *GiftService
	Catalog   *Catalog
	Ledger    *Ledger
	Inventory *Inventory
	Boosts    *BoostRegistry
	Selector  *Selector
	Status    *StatusProjector
	Sessions  *SessionService
}

// New 创建并组装服务，sink 为空时不记录审计
func New(db *gorm.DB, cfg *config.Config, sink audit.Sink) *Services {
	if sink == nil {
		sink = audit.Nop{}
	}

	runner := newTxRunner(db, cfg.Draw)
	catalog := NewCatalog(db, utils.NewCache(cfg.Cache.BreakdownTTL()), sink)
	inventory := NewInventory(db)
	ledger := NewLedger(db, catalog, runner, sink)
	boosts := NewBoostRegistry(db, catalog, inventory, runner, sink)

	return &Services{
		Gifts:     NewGiftService(db),
		Catalog:   catalog,
		Ledger:    ledger,
		Inventory: inventory,
		Boosts:    boosts,
		Selector:  NewSelector(db, catalog, ledger, inventory, boosts, runner, sink),
		Status:    NewStatusProjector(db, catalog),
		Sessions:  NewSessionService(db, cfg.Scheduler, catalog, ledger, runner, sink),
	}
}
