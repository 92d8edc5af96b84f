package audit

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
)

// WebhookSink 异步推送审计记录到 HTTP 回调
type WebhookSink struct {
	url    string
	secret string
	client *resty.Client
	wg     sync.WaitGroup
}

// NewWebhookSink 创建回调接收方
func NewWebhookSink(url, secret string) *WebhookSink {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)

	return &WebhookSink{
		url:    url,
		secret: secret,
		client: client,
	}
}

// Record 实现 Sink，请求在后台发送
func (w *WebhookSink) Record(actorID int64, action string, detail map[string]any) {
	event := Event{
		ActorID: actorID,
		Action:  action,
		Detail:  detail,
		Time:    time.Now(),
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.send(event)
	}()
}

func (w *WebhookSink) send(event Event) {
	req := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event)
	if w.secret != "" {
		req.SetHeader("X-Shuffle-Secret", w.secret)
	}

	resp, err := req.Post(w.url)
	if err != nil {
		logger.Warn().Err(err).Str("action", event.Action).Msg("审计回调发送失败")
		return
	}
	if resp.IsError() {
		logger.Warn().
			Int("status", resp.StatusCode()).
			Str("action", event.Action).
			Msg("审计回调返回错误")
	}
}

// Wait 等待已提交的回调发送完成
func (w *WebhookSink) Wait() {
	w.wg.Wait()
}
