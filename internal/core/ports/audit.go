package ports

import (
	"context"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

// AuditSink durably writes a single audit event.
type AuditSink interface {
	Write(ctx context.Context, event domain.AuthEvent) error
}
