package archive

import (
	"context"
	"time"
)

// Record is one archived conversational turn. The archive is write-only from
// the service's point of view; conversation memory never reads it back.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the transcript audit log.
type Store interface {
	SaveTurn(ctx context.Context, record Record) error
	Close() error
}
