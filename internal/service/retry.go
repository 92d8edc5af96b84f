package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-sql-driver/mysql"
	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
	"gorm.io/gorm"
)

// MySQL 错误码
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrDuplicateEntry  = 1062
)

// errSlotConflict 插入中奖记录时名额已被占用，整笔事务重试
var errSlotConflict = errors.New("名额冲突")

// txRunner 带超时与重试的事务执行器
type txRunner struct {
	db  *gorm.DB
	cfg config.DrawConfig
}

func newTxRunner(db *gorm.DB, cfg config.DrawConfig) *txRunner {
	return &txRunner{db: db, cfg: cfg}
}

// Run 在事务中执行 fn，锁等待超时、死锁等冲突按指数退避重试
// 重试耗尽时返回 ErrConcurrentDraw，其他错误原样返回且不重试
func (r *txRunner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := r.attempt(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isRetryable(err) {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("事务冲突，准备重试")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.BackoffInitial()

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
	)
	if err != nil && isRetryable(err) {
		logger.Warn().Err(err).Int("attempts", attempt).Msg("事务重试次数已用完")
		return fmt.Errorf("%w: %v", ErrConcurrentDraw, err)
	}
	return err
}

// attempt 单次事务尝试，等待锁的时间受 LockWait 限制
func (r *txRunner) attempt(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.LockWait())
	defer cancel()

	return r.db.WithContext(attemptCtx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "mysql" {
			if err := tx.Exec("SET SESSION innodb_lock_wait_timeout = ?", r.cfg.LockWaitSeconds).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// isRetryable 是否为可重试的并发冲突
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errSlotConflict) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrLockWaitTimeout || mysqlErr.Number == mysqlErrDeadlock
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// isDuplicateKey 是否为唯一索引冲突
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound 将记录不存在转换为业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
