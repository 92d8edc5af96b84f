package service

import (
	"testing"

	"github.com/smysle/gift-shuffle-go/internal/database/models"
)

func TestCycleOf(t *testing.T) {
	tests := []struct {
		name     string
		slot     int
		total    int
		expected int
	}{
		{"尚无中奖", 0, 50, 1},
		{"第一个名额", 1, 50, 1},
		{"整倍数归属当前轮", 50, 50, 1},
		{"进入第二轮", 51, 50, 2},
		{"第二轮最后一个", 100, 50, 2},
		{"第三轮", 101, 50, 3},
		{"名额为 0 的配置", 7, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CycleOf(tt.slot, tt.total); got != tt.expected {
				t.Errorf("CycleOf(%d, %d) = %d, want %d", tt.slot, tt.total, got, tt.expected)
			}
		})
	}
}

func TestSlotInCycle(t *testing.T) {
	tests := []struct {
		winners  int
		total    int
		expected int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{9, 10, 9},
		{10, 10, 10},
		{11, 10, 1},
		{25, 10, 5},
	}

	for _, tt := range tests {
		if got := SlotInCycle(tt.winners, tt.total); got != tt.expected {
			t.Errorf("SlotInCycle(%d, %d) = %d, want %d", tt.winners, tt.total, got, tt.expected)
		}
	}
}

func TestPickWeighted(t *testing.T) {
	candidates := []models.RoundGift{
		{GiftID: 1, QuantityAvailable: 2},
		{GiftID: 2, QuantityAvailable: 3, QuantityUsed: 3}, // 已抽完，权重为 0
		{GiftID: 3, QuantityAvailable: 5, QuantityUsed: 2},
	}
	if total := totalRemaining(candidates); total != 5 {
		t.Fatalf("totalRemaining = %d, want 5", total)
	}

	tests := []struct {
		r        int
		expected uint
		ok       bool
	}{
		{0, 1, true},
		{1, 1, true},
		{2, 3, true},
		{4, 3, true},
		{5, 0, false},
	}

	for _, tt := range tests {
		got, ok := pickWeighted(candidates, tt.r)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("pickWeighted(r=%d) = (%d, %v), want (%d, %v)", tt.r, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestPickWeighted_ProportionalToRemaining(t *testing.T) {
	candidates := []models.RoundGift{
		{GiftID: 1, QuantityAvailable: 1},
		{GiftID: 2, QuantityAvailable: 3},
	}

	counts := map[uint]int{}
	for r := 0; r < totalRemaining(candidates); r++ {
		id, _ := pickWeighted(candidates, r)
		counts[id]++
	}

	if counts[1] != 1 || counts[2] != 3 {
		t.Errorf("分布不符合剩余数量: %v", counts)
	}
}
