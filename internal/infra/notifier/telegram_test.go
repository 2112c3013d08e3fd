package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-token"

// fakeBotAPI is a minimal Bot API sendMessage endpoint.
type fakeBotAPI struct {
	mu       sync.Mutex
	texts    []string
	chatIDs  []string
	calls    int32
	response func(call int32) (int, string)
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testBotToken+"/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)

		call := atomic.AddInt32(&f.calls, 1)
		status, body := http.StatusOK, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`
		if f.response != nil {
			status, body = f.response(call)
		}
		if status == http.StatusOK {
			f.mu.Lock()
			f.texts = append(f.texts, params["text"].(string))
			f.chatIDs = append(f.chatIDs, params["chat_id"].(string))
			f.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestTelegram(t *testing.T, url string) *TelegramNotifier {
	t.Helper()
	n, err := NewTelegramNotifier(TelegramConfig{
		Enabled:        true,
		Token:          testBotToken,
		APIURL:         url,
		Timeout:        5 * time.Second,
		RetryBaseDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return n
}

func TestNewTelegramNotifier_EmptyToken(t *testing.T) {
	_, err := NewTelegramNotifier(TelegramConfig{Token: "  "})
	assert.Error(t, err)
}

func TestTelegramNotifier_SendText(t *testing.T) {
	t.Run("delivers to the chat", func(t *testing.T) {
		api := &fakeBotAPI{}
		server := httptest.NewServer(api.handler(t))
		defer server.Close()

		err := newTestTelegram(t, server.URL).SendText(context.Background(), "42", "새 글: hello")

		require.NoError(t, err)
		assert.Equal(t, []string{"새 글: hello"}, api.texts)
		assert.Equal(t, []string{"42"}, api.chatIDs)
	})

	t.Run("splits long text", func(t *testing.T) {
		api := &fakeBotAPI{}
		server := httptest.NewServer(api.handler(t))
		defer server.Close()

		text := strings.Repeat("line of text\n", 700) // ~9100 runes
		err := newTestTelegram(t, server.URL).SendText(context.Background(), "42", text)

		require.NoError(t, err)
		require.Len(t, api.texts, 3)
		for _, chunk := range api.texts {
			assert.LessOrEqual(t, len([]rune(chunk)), telegramTextLimit)
		}
		assert.Equal(t, strings.TrimRight(text, "\n"), strings.Join(api.texts, "\n"))
	})

	t.Run("rejects non numeric chat id", func(t *testing.T) {
		api := &fakeBotAPI{}
		server := httptest.NewServer(api.handler(t))
		defer server.Close()

		err := newTestTelegram(t, server.URL).SendText(context.Background(), "@channel", "x")

		assert.ErrorIs(t, err, ErrInvalidRecipient)
		assert.Equal(t, int32(0), atomic.LoadInt32(&api.calls))
	})

	t.Run("does not retry chat not found", func(t *testing.T) {
		api := &fakeBotAPI{response: func(int32) (int, string) {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
		}}
		server := httptest.NewServer(api.handler(t))
		defer server.Close()

		err := newTestTelegram(t, server.URL).SendText(context.Background(), "42", "x")

		var clientErr *ClientError
		require.True(t, errors.As(err, &clientErr), "got %v", err)
		assert.Equal(t, 400, clientErr.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&api.calls))
	})

	t.Run("waits out flood control", func(t *testing.T) {
		api := &fakeBotAPI{response: func(call int32) (int, string) {
			if call == 1 {
				return http.StatusTooManyRequests,
					`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 1","parameters":{"retry_after":1}}`
			}
			return http.StatusOK, `{"ok":true,"result":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"}}}`
		}}
		server := httptest.NewServer(api.handler(t))
		defer server.Close()

		start := time.Now()
		err := newTestTelegram(t, server.URL).SendText(context.Background(), "42", "x")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&api.calls))
		assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	})
}
