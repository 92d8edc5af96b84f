package service

import (
	"github.com/smysle/gift-shuffle-go/internal/database/models"
)

// CycleOf 名额所在的循环轮次，整倍数归属当前轮次；尚无中奖时为第 1 轮
func CycleOf(slot, total int) int {
	if slot <= 0 || total <= 0 {
		return 1
	}
	return (slot + total - 1) / total
}

// SlotInCycle 当前轮次已产生的名额数，尚无中奖时为 0
func SlotInCycle(winners, total int) int {
	if winners <= 0 || total <= 0 {
		return 0
	}
	return (winners-1)%total + 1
}

// pickWeighted 按剩余数量加权选择奖品，r 取值 [0, 总剩余数量)
// 候选按 gift_id 升序，剩余数量相同的奖品概率相同
func pickWeighted(candidates []models.RoundGift, r int) (uint, bool) {
	cumulative := 0
	for i := range candidates {
		cumulative += candidates[i].Remaining()
		if r < cumulative {
			return candidates[i].GiftID, true
		}
	}
	return 0, false
}

// totalRemaining 候选奖品的剩余总量
func totalRemaining(candidates []models.RoundGift) int {
	sum := 0
	for i := range candidates {
		sum += candidates[i].Remaining()
	}
	return sum
}
