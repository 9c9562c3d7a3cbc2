package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/nikbrunner/marks/internal/notify"
	"gotest.tools/v3/assert"
)

// pushServer accepts one connection per request and writes the given
// messages before closing it.
func pushServer(t *testing.T, messages ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		conns.Add(1)
		for _, m := range messages {
			if err := conn.Write(r.Context(), websocket.MessageText, []byte(m)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	t.Cleanup(ts.Close)
	return ts, &conns
}

func TestEventEncode(t *testing.T) {
	data, err := notify.Event{Type: notify.TypeBookmarksChanged}.Encode()
	assert.NilError(t, err)
	assert.Equal(t, string(data), `{"type":"bookmarks.changed","ids":[]}`)
}

func TestSubscribe_DeliversAndReconnects(t *testing.T) {
	ts, conns := pushServer(t,
		`{"type":"bookmarks.changed","ids":["a","b"]}`,
		`not json`,
		`{"type":"something.else","ids":["x"]}`,
		`{"type":"bookmarks.changed","ids":[]}`,
	)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- notify.Subscribe(ctx, url, notify.Options{
			Backoff: notify.Backoff{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond},
		}, func(ids []string) { got <- ids })
	}()

	for i := 0; i < 2; i++ {
		select {
		case ids := <-got:
			assert.DeepEqual(t, ids, []string{"a", "b"})
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
	}
	assert.Assert(t, conns.Load() >= 2, "subscriber reconnects after close")

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestSubscribe_RetriesUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := notify.Subscribe(ctx, "ws://127.0.0.1:1/ws", notify.Options{
		Backoff: notify.Backoff{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond},
	}, func([]string) { t.Error("no events expected") })
	assert.NilError(t, err)
}
