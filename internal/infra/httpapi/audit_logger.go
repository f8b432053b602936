package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"archui-experiment-service/internal/domain"
)

// AuditLogger ships audit events to the log endpoint. Log is fire-and-forget:
// the request runs in its own goroutine, is detached from the caller's
// context, and its outcome is never awaited.
type AuditLogger struct {
	url    string
	client *http.Client
}

func NewAuditLogger(url string, client *http.Client) *AuditLogger {
	return &AuditLogger{url: url, client: client}
}

type logPayload struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (l *AuditLogger) Log(_ context.Context, event domain.AuditEvent) {
	payload := logPayload{
		Level:     event.Level,
		Message:   FormatEvent(event),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}
		req, err := http.NewRequest(http.MethodPost, l.url, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := l.client.Do(req)
		if err != nil {
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
}

// FormatEvent renders an event with its participant/task/question context so
// the trail stays attributable after it leaves the process.
func FormatEvent(event domain.AuditEvent) string {
	return fmt.Sprintf("participant=%s task=%s question=%s %s",
		event.ParticipantID, event.TaskName, event.QuestionKey, event.Message)
}
