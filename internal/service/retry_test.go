package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"锁等待超时", &mysql.MySQLError{Number: 1205}, true},
		{"死锁", fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1213}), true},
		{"唯一索引冲突不重试", &mysql.MySQLError{Number: 1062}, false},
		{"单次尝试超时", context.DeadlineExceeded, true},
		{"sqlite 忙", errors.New("database is locked"), true},
		{"名额冲突", fmt.Errorf("insert: %w", errSlotConflict), true},
		{"权限错误", ErrPermission, false},
		{"空错误", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: gift_winners.session_id")))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateKey(nil))
}

func TestTxRunner_Run(t *testing.T) {
	f := newFixture(t)
	runner := newTxRunner(f.db, f.cfg.Draw)

	t.Run("冲突重试耗尽", func(t *testing.T) {
		calls := 0
		err := runner.Run(f.ctx, func(tx *gorm.DB) error {
			calls++
			return errSlotConflict
		})
		require.ErrorIs(t, err, ErrConcurrentDraw)
		assert.Equal(t, f.cfg.Draw.MaxAttempts, calls)
	})

	t.Run("锁等待超时重试耗尽", func(t *testing.T) {
		calls := 0
		err := runner.Run(f.ctx, func(tx *gorm.DB) error {
			calls++
			return &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
		})
		require.ErrorIs(t, err, ErrConcurrentDraw)
		assert.Equal(t, KindConcurrency, KindOf(err))
		assert.Equal(t, f.cfg.Draw.MaxAttempts, calls)
	})

	t.Run("单次尝试超时重试耗尽", func(t *testing.T) {
		cfg := f.cfg.Draw
		cfg.LockWaitSeconds = 1
		cfg.MaxAttempts = 2
		calls := 0
		err := newTxRunner(f.db, cfg).Run(f.ctx, func(tx *gorm.DB) error {
			calls++
			<-tx.Statement.Context.Done()
			return tx.Statement.Context.Err()
		})
		require.ErrorIs(t, err, ErrConcurrentDraw)
		assert.Equal(t, 2, calls)
	})

	t.Run("业务错误不重试", func(t *testing.T) {
		calls := 0
		err := runner.Run(f.ctx, func(tx *gorm.DB) error {
			calls++
			return ErrPermission
		})
		require.ErrorIs(t, err, ErrPermission)
		assert.Equal(t, 1, calls)
	})

	t.Run("重试后成功", func(t *testing.T) {
		calls := 0
		err := runner.Run(f.ctx, func(tx *gorm.DB) error {
			calls++
			if calls == 1 {
				return &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}
