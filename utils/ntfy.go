package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cowin-slots/model"
)

const (
	EmojiTada        = "🎉"
	EmojiLoudspeaker = "🔊"
	EmojiSyringe     = "💉"
	EmojiWarning     = "⚠️"
)

// SendNotification publishes ntf to the topic on an ntfy server.
func SendNotification(ctx context.Context, client *http.Client, server string, ntf *model.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(server, "/")+"/"+ntf.Topic, strings.NewReader(ntf.Message))
	if err != nil {
		return fmt.Errorf("can't create request to NTFY: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain")
	if ntf.Title != "" {
		req.Header.Set("Title", ntf.Title)
	}
	if len(ntf.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(ntf.Tags, ","))
	}
	if ntf.Priority != 0 {
		req.Header.Set("Priority", strconv.Itoa(ntf.Priority))
	} else {
		req.Header.Set("Priority", "3")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("can't send request to NTFY: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("NTFY error response %s: %s", resp.Status, string(bodyBytes))
	}

	slog.Debug("notification sent to NTFY", slog.String("topic", ntf.Topic))
	return nil
}
