package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type recordingSink struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingSink) Record(_ int64, action string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func TestMulti_Record(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := Multi{a, Nop{}, LogSink{}, b}

	sink.Record(1, ActionDraw, map[string]any{"slot": 1})

	assert.Equal(t, []string{ActionDraw}, a.actions)
	assert.Equal(t, []string{ActionDraw}, b.actions)
}

func TestWebhookSink_Record(t *testing.T) {
	var (
		mu     sync.Mutex
		got    Event
		secret string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		secret = r.Header.Get("X-Shuffle-Secret")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, "s3cret")
	sink.Record(42, ActionBoostCreate, map[string]any{"target_round": 3})
	sink.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, int64(42), got.ActorID)
	assert.Equal(t, ActionBoostCreate, got.Action)
	assert.EqualValues(t, 3, got.Detail["target_round"])
}

func TestWebhookSink_FailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, "")
	sink.client.SetRetryCount(0)

	assert.NotPanics(t, func() {
		sink.Record(1, ActionDraw, nil)
		sink.Wait()
	})
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, what.(string))
	return &tele.Message{}, f.err
}

func TestTelegramSink_Record(t *testing.T) {
	fake := &fakeSender{}
	sink := newTelegramSink(fake, -100123)

	sink.Record(7, ActionDraw, map[string]any{"slot": 3, "gift": "B"})
	sink.Record(7, ActionAutoAdvance, nil) // 不推送
	sink.Wait()

	require.Len(t, fake.texts, 1)
	assert.Equal(t, "🎁 抽出中奖者\n操作员: 7\ngift: B\nslot: 3", fake.texts[0])
}

func TestTelegramSink_SendErrorIsSwallowed(t *testing.T) {
	fake := &fakeSender{err: errors.New("network down")}
	sink := newTelegramSink(fake, 1)

	assert.NotPanics(t, func() {
		sink.Record(1, ActionSessionStart, nil)
		sink.Wait()
	})
	assert.Len(t, fake.texts, 1)
}
