package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-rain/internal/rain"
)

type recordingTarget struct {
	mu   sync.Mutex
	msgs []rain.Message
}

func (r *recordingTarget) Upsert(msgs ...rain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgs...)
}

func (r *recordingTarget) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Title)
	}
	return out
}

// frameServer sends frames on every connection, then closes it
func frameServer(t *testing.T, conns *atomic.Int32, frames ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDecodeFrame(t *testing.T) {
	qs, err := DecodeFrame([]byte(`{"symbol":"AMD","regularMarketChange":1.5}`))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, 1.5, qs[0].Change)

	qs, err = DecodeFrame([]byte(` [{"symbol":"A"},{"symbol":"B"}] `))
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	_, err = DecodeFrame([]byte("not json"))
	assert.Error(t, err)
	_, err = DecodeFrame(nil)
	assert.Error(t, err)
}

func TestDialRejectsBadEndpoint(t *testing.T) {
	for _, u := range []string{"", "http://example.com", "ws://", "::"} {
		_, err := Dial(context.Background(), u, Config{}, &recordingTarget{})
		assert.Error(t, err, u)
	}
}

func TestStreamPushesFramesAndReconnects(t *testing.T) {
	var conns atomic.Int32
	url := frameServer(t, &conns,
		`{"symbol":"AMD","regularMarketChange":1.5,"regularMarketChangePercent":0.9}`,
		`garbage`,
		`[{"symbol":"TSLA","regularMarketChange":-2},{"symbol":""}]`,
	)

	target := &recordingTarget{}
	s, err := Dial(context.Background(), url, Config{
		BaseBackoff:  5 * time.Millisecond,
		MaxBackoff:   20 * time.Millisecond,
		PingInterval: 50 * time.Millisecond,
	}, target)
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return conns.Load() >= 2 }, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(target.titles()) >= 4 }, 3*time.Second, 5*time.Millisecond)

	titles := target.titles()
	assert.Equal(t, []string{"AMD", "TSLA"}, titles[:2])
	assert.GreaterOrEqual(t, s.Updates(), int64(4))

	target.mu.Lock()
	assert.Equal(t, rain.ToneNegative, target.msgs[1].Tone)
	target.mu.Unlock()
}

func TestStreamCloseStopsRetrying(t *testing.T) {
	// nothing listens here, so the stream keeps backing off
	target := &recordingTarget{}
	s, err := Dial(context.Background(), "ws://127.0.0.1:1/feed", Config{BaseBackoff: time.Millisecond}, target)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.Connected())
	assert.ErrorIs(t, s.Probe(context.Background()), ErrNotConnected)

	done := make(chan struct{})
	go func() { s.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := backoff(attempt, 10*time.Millisecond, time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
	assert.Less(t, backoff(0, 10*time.Millisecond, time.Second), 10*time.Millisecond)
	assert.Zero(t, backoff(3, 0, 0))
}
