// Package notify carries change events from the capture server to running
// interfaces over a websocket.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"nhooyr.io/websocket"
)

// TypeBookmarksChanged announces bookmarks that were created or updated.
const TypeBookmarksChanged = "bookmarks.changed"

// Event is a single push message.
type Event struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// Encode returns the wire form of e.
func (e Event) Encode() ([]byte, error) {
	if e.IDs == nil {
		e.IDs = []string{}
	}
	return json.Marshal(e)
}

// Backoff bounds the delay between reconnect attempts.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// DefaultBackoff starts at half a second and doubles up to 30 seconds.
var DefaultBackoff = Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second}

func (b Backoff) next(d time.Duration) time.Duration {
	if d < b.Min {
		return b.Min
	}
	return min(2*d, b.Max)
}

// Options configures Subscribe.
type Options struct {
	Logger  *log.Logger
	Backoff Backoff
}

// Subscribe dials url and calls onChange with the ids of every
// bookmarks.changed event. It reconnects with backoff whenever the
// connection drops and returns when ctx is done.
func Subscribe(ctx context.Context, url string, opts Options, onChange func(ids []string)) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	backoff := opts.Backoff
	if backoff.Min <= 0 || backoff.Max < backoff.Min {
		backoff = DefaultBackoff
	}

	var delay time.Duration
	for {
		connected, err := listen(ctx, url, logger, onChange)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = 0
		}
		delay = backoff.next(delay)
		logger.Debug("notify.retry", "url", url, "in", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// listen reads events until the connection fails. It reports whether the
// dial succeeded.
func listen(ctx context.Context, url string, logger *log.Logger, onChange func([]string)) (bool, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()
	logger.Info("notify.connected", "url", url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if code := websocket.CloseStatus(err); code != -1 {
				logger.Info("notify.closed", "code", code)
			}
			return true, err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("notify.parse", "err", err)
			continue
		}
		if ev.Type != TypeBookmarksChanged || len(ev.IDs) == 0 {
			continue
		}
		onChange(ev.IDs)
	}
}
