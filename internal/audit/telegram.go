package audit

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smysle/gift-shuffle-go/pkg/logger"
	tele "gopkg.in/telebot.v3"
)

// sender 发送消息，*tele.Bot 满足该接口
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// actionTitles 推送到 Telegram 的动作
var actionTitles = map[string]string{
	ActionDraw:            "🎁 抽出中奖者",
	ActionRoundCreate:     "🔄 开启新一轮",
	ActionBoostCreate:     "📌 设置指定中奖",
	ActionBoostRemove:     "🗑 移除指定中奖",
	ActionBoostDiscard:    "⚠️ 指定中奖库存不足已作废",
	ActionSessionStart:    "▶️ 场次开始",
	ActionSessionComplete: "⏹ 场次结束",
}

// TelegramSink 将关键操作推送到运营群
type TelegramSink struct {
	bot  sender
	chat *tele.Chat
	wg   sync.WaitGroup
}

// NewTelegramSink 创建 Telegram 接收方，只发送消息不拉取更新
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram Bot 失败: %w", err)
	}
	return newTelegramSink(b, chatID), nil
}

func newTelegramSink(bot sender, chatID int64) *TelegramSink {
	return &TelegramSink{
		bot:  bot,
		chat: &tele.Chat{ID: chatID},
	}
}

// Record 实现 Sink，未关注的动作直接忽略
func (t *TelegramSink) Record(actorID int64, action string, detail map[string]any) {
	title, ok := actionTitles[action]
	if !ok {
		return
	}
	text := formatMessage(title, actorID, detail)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if _, err := t.bot.Send(t.chat, text); err != nil {
			logger.Warn().Err(err).Str("action", action).Msg("审计消息推送失败")
		}
	}()
}

// Wait 等待已提交的消息发送完成
func (t *TelegramSink) Wait() {
	t.wg.Wait()
}

// formatMessage 生成消息文本，字段按名称排序
func formatMessage(title string, actorID int64, detail map[string]any) string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString(fmt.Sprintf("\n操作员: %d", actorID))
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n%s: %v", k, detail[k]))
	}
	return sb.String()
}
