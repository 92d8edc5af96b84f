// Package audit 操作审计，记录失败只写日志不影响主流程
package audit

import (
	"time"

	"github.com/smysle/gift-shuffle-go/pkg/logger"
)

// 审计动作
const (
	ActionDraw            = "draw"
	ActionRoundCreate     = "round_create"
	ActionBoostCreate     = "boost_create"
	ActionBoostRemove     = "boost_remove"
	ActionBoostConsume    = "boost_consume"
	ActionBoostDiscard    = "boost_discard"
	ActionSessionStart    = "session_start"
	ActionSessionComplete = "session_complete"
	ActionAutoAdvance     = "auto_advance"
	ActionBreakdownCreate = "breakdown_create"
	ActionBreakdownToggle = "breakdown_toggle"
)

// Sink 审计记录接收方
type Sink interface {
	Record(actorID int64, action string, detail map[string]any)
}

// Event 一条审计记录
type Event struct {
	ActorID int64          `json:"actor_id"`
	Action  string         `json:"action"`
	Detail  map[string]any `json:"detail,omitempty"`
	Time    time.Time      `json:"time"`
}

// Nop 丢弃所有记录
type Nop struct{}

// Record 实现 Sink
func (Nop) Record(int64, string, map[string]any) {}

// LogSink 写入日志
type LogSink struct{}

// Record 实现 Sink
func (LogSink) Record(actorID int64, action string, detail map[string]any) {
	logger.Info().
		Int64("actor", actorID).
		Str("action", action).
		Fields(detail).
		Msg("操作审计")
}

// Multi 依次分发给多个接收方
type Multi []Sink

// Record 实现 Sink
func (m Multi) Record(actorID int64, action string, detail map[string]any) {
	for _, s := range m {
		s.Record(actorID, action, detail)
	}
}
