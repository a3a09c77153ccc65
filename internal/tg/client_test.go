package tg

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeEnvelopeSuccess(t *testing.T) {
	body := []byte(`{"ok":true,"result":{"message_id":42,"chat":{"id":7},"text":"hi"}}`)
	var msg Message
	if err := decodeEnvelope(200, body, &msg); err != nil { t.Fatalf("decodeEnvelope: %v", err) }
	if msg.MessageID != 42 || msg.Chat.ID != 7 || msg.Text != "hi" {
		t.Fatalf("decoded message = %+v", msg)
	}
}

func TestDecodeEnvelopeAPIError(t *testing.T) {
	body := []byte(`{"ok":false,"error_code":400,"description":"Bad Request: message not found"}`)
	err := decodeEnvelope(400, body, nil)
	if err == nil { t.Fatalf("expected error") }
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "message not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestDecodeEnvelopeBadJSON(t *testing.T) {
	if err := decodeEnvelope(502, []byte("<html>bad gateway</html>"), nil); err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
}

func TestDecodeEnvelopeNilOut(t *testing.T) {
	body := []byte(`{"ok":true,"result":true}`)
	if err := decodeEnvelope(200, body, nil); err != nil { t.Fatalf("decodeEnvelope: %v", err) }
}

func TestDecodeEnvelopeUpdates(t *testing.T) {
	body := []byte(`{"ok":true,"result":[{"update_id":10,"message":{"message_id":1,"chat":{"id":5},"text":"/start"}},{"update_id":11,"callback_query":{"id":"cb1","from":{"id":9},"data":"side:white"}}]}`)
	var updates []Update
	if err := decodeEnvelope(200, body, &updates); err != nil { t.Fatalf("decodeEnvelope: %v", err) }
	if len(updates) != 2 { t.Fatalf("updates = %d", len(updates)) }
	if updates[0].Message == nil || updates[0].Message.Text != "/start" { t.Fatalf("first update = %+v", updates[0]) }
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "side:white" { t.Fatalf("second update = %+v", updates[1]) }
}

func TestBackoffDuration(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{10, 3200 * time.Millisecond}, // capped
	}
	for _, c := range cases {
		if got := backoffDuration(c.attempt); got != c.want {
			t.Fatalf("backoffDuration(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestShouldRetryStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !shouldRetryStatus(code) { t.Fatalf("status %d should retry", code) }
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		if shouldRetryStatus(code) { t.Fatalf("status %d should not retry", code) }
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" { t.Fatalf("got %q", got) }
	if got := truncate("hello world", 5); got != "hello" { t.Fatalf("got %q", got) }
}
