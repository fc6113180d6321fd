package comfy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"mergeflow/pkg/storage"
)

// OutputImage is the descriptor a completion event carries for each
// produced image.
type OutputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// event is one parsed websocket frame. Only "executed" frames matter; the
// service also streams progress and status frames on the same channel.
type event struct {
	Type string `json:"type"`
	Data struct {
		PromptID string `json:"prompt_id"`
		Output   struct {
			Images []OutputImage `json:"images"`
		} `json:"output"`
	} `json:"data"`
}

// Watcher blocks on the websocket completion channel until a submitted job
// finishes, then fetches and persists the produced image.
type Watcher struct {
	client  *Client
	store   *storage.Store
	timeout time.Duration
}

// NewWatcher creates a watcher. timeout bounds each AwaitOutput call; zero
// means wait forever.
func NewWatcher(client *Client, store *storage.Store, timeout time.Duration) *Watcher {
	return &Watcher{client: client, store: store, timeout: timeout}
}

// AwaitOutput opens a websocket connection scoped to clientID and blocks
// until an "executed" event for promptID arrives, the deadline passes
// (ErrWatchTimeout), or ctx is canceled. On a matching event it fetches the
// first output image, persists it under the service-assigned filename, and
// returns that filename. Completed-but-empty jobs return ErrEmptyOutput.
// Additional images beyond the first are dropped (first-wins).
func (w *Watcher) AwaitOutput(ctx context.Context, promptID, clientID string) (string, error) {
	u := url.URL{
		Scheme:   "ws",
		Host:     w.client.Host(),
		Path:     "/ws",
		RawQuery: url.Values{"clientId": []string{clientID}}.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return "", &TransportError{Op: "watch", Err: err}
	}
	defer conn.Close()

	if w.timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(w.timeout)); err != nil {
			return "", &TransportError{Op: "watch", Err: err}
		}
	}

	// Unblock the read loop when the caller goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Info("Waiting for prompt completion", "prompt_id", promptID)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return "", ErrWatchTimeout
			}
			return "", &TransportError{Op: "watch", Err: err}
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Debug("Ignoring unparseable frame", "error", err)
			continue
		}
		if ev.Type != "executed" || ev.Data.PromptID != promptID {
			continue
		}

		images := ev.Data.Output.Images
		if len(images) == 0 {
			slog.Warn("Job executed but produced no images", "prompt_id", promptID)
			return "", ErrEmptyOutput
		}

		first := images[0]
		content, err := w.client.View(ctx, first.Filename, first.Subfolder, first.Type)
		if err != nil {
			return "", fmt.Errorf("failed to fetch output %s: %w", first.Filename, err)
		}

		path, err := w.store.SaveFinal(first.Filename, content)
		if err != nil {
			return "", fmt.Errorf("failed to persist output %s: %w", first.Filename, err)
		}

		slog.Info("Final image saved", "prompt_id", promptID, "path", path)
		return first.Filename, nil
	}
}
