package notify

import "context"

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a human-readable message the cart engine emits for the UI to
// render: duplicate adds, bundle consolidation, merge warnings, rollback
// failures.
type Notice struct {
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	SessionKey string `json:"session_key"`
}

// Sink receives engine notices. Delivery is best-effort; a failing sink must
// never fail the cart operation that produced the notice.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// NopSink discards all notices.
type NopSink struct{}

func (NopSink) Notify(context.Context, Notice) {}
