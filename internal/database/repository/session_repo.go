// Package repository 抽奖场次数据仓库
package repository

import (
	"time"

	"github.com/smysle/gift-shuffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 场次仓库
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建场次仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx 返回使用指定事务的仓库
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Create 创建场次
func (r *SessionRepository) Create(session *models.ShuffleSession) error {
	return r.db.Create(session).Error
}

// GetByID 根据 ID 获取场次
func (r *SessionRepository) GetByID(id uint) (*models.ShuffleSession, error) {
	var session models.ShuffleSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// LockByID 获取场次并加行锁（SELECT ... FOR UPDATE），必须在事务中调用
func (r *SessionRepository) LockByID(id uint) (*models.ShuffleSession, error) {
	var session models.ShuffleSession
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByOwner 获取操作员的场次，最新的在前
func (r *SessionRepository) ListByOwner(createdBy int64) ([]models.ShuffleSession, error) {
	var sessions []models.ShuffleSession
	err := r.db.Where("created_by = ?", createdBy).Order("id DESC").Find(&sessions).Error
	return sessions, err
}

// ListActive 获取所有进行中的场次
func (r *SessionRepository) ListActive() ([]models.ShuffleSession, error) {
	var sessions []models.ShuffleSession
	err := r.db.Where("status = ?", models.SessionActive).Order("id ASC").Find(&sessions).Error
	return sessions, err
}

// ListAutoAdvance 获取开启自动抽奖的进行中场次
func (r *SessionRepository) ListAutoAdvance() ([]models.ShuffleSession, error) {
	var sessions []models.ShuffleSession
	err := r.db.Where("status = ? AND auto_advance_seconds > 0", models.SessionActive).
		Order("id ASC").
		Find(&sessions).Error
	return sessions, err
}

// CountActiveByBreakdown 统计引用该奖品配置的进行中场次
func (r *SessionRepository) CountActiveByBreakdown(breakdownID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ShuffleSession{}).
		Where("breakdown_id = ? AND status = ?", breakdownID, models.SessionActive).
		Count(&count).Error
	return count, err
}

// SetBreakdownRound 更新缓存的循环轮次
func (r *SessionRepository) SetBreakdownRound(id uint, cycle int) error {
	return r.db.Model(&models.ShuffleSession{}).
		Where("id = ?", id).
		Update("breakdown_round", cycle).Error
}

// SetAutoAdvance 更新自动抽奖间隔
func (r *SessionRepository) SetAutoAdvance(id uint, seconds int) error {
	return r.db.Model(&models.ShuffleSession{}).
		Where("id = ?", id).
		Update("auto_advance_seconds", seconds).Error
}

// Complete 将进行中的场次标记为已结束
func (r *SessionRepository) Complete(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.ShuffleSession{}).
		Where("id = ? AND status = ?", id, models.SessionActive).
		Updates(map[string]interface{}{
			"status":               models.SessionCompleted,
			"completed_at":         at,
			"auto_advance_seconds": 0,
		})
	return result.RowsAffected > 0, result.Error
}
