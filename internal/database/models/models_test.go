// Package models 数据模型测试
package models

import (
	"testing"
)

func TestRoundGift_Remaining(t *testing.T) {
	tests := []struct {
		name      string
		available int
		used      int
		expected  int
	}{
		{"全新库存", 5, 0, 5},
		{"部分使用", 5, 3, 2},
		{"已用完", 5, 5, 0},
		{"数据异常不为负", 5, 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &RoundGift{QuantityAvailable: tt.available, QuantityUsed: tt.used}
			if got := g.Remaining(); got != tt.expected {
				t.Errorf("Remaining() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestShuffleSession_State(t *testing.T) {
	s := &ShuffleSession{Status: SessionActive, CreatedBy: 7}

	if !s.IsActive() {
		t.Error("进行中的场次 IsActive() 应该返回 true")
	}
	if !s.IsOwnedBy(7) {
		t.Error("IsOwnedBy(7) 应该返回 true")
	}
	if s.IsOwnedBy(8) {
		t.Error("IsOwnedBy(8) 应该返回 false")
	}

	s.Status = SessionCompleted
	if s.IsActive() {
		t.Error("已结束的场次 IsActive() 应该返回 false")
	}
}

func TestGiftBreakdown_AllotmentSum(t *testing.T) {
	b := &GiftBreakdown{Gifts: []BreakdownGift{{GiftID: 1, Quantity: 5}, {GiftID: 2, Quantity: 3}}}
	if got := b.AllotmentSum(); got != 8 {
		t.Errorf("AllotmentSum() = %d, want 8", got)
	}
}
