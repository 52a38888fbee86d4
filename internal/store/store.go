// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/parleylabs/parley/internal/domain"
)

// MessageWithFiles is a persisted message row plus its attachment metadata.
type MessageWithFiles struct {
	domain.StoredMessage
	Files []domain.FileInfo `json:"files,omitempty"`
}

// Repository defines the interface for persisting conversation history and
// file attachments.
type Repository interface {
	// AppendMessage appends one message to a session's durable history and
	// returns the new row id.
	AppendMessage(ctx context.Context, sessionID, role, content, model string) (int64, error)

	// ListMessages returns all messages for a session in append order.
	ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error)

	// ListMessagesWithFiles returns a session's messages in append order,
	// each carrying its attachment metadata.
	ListMessagesWithFiles(ctx context.Context, sessionID string) ([]MessageWithFiles, error)

	// AppendFile stores a binary attachment for a message and returns the
	// new file id.
	AppendFile(ctx context.Context, messageID int64, sessionID, filename, mediaType string, data []byte) (int64, error)

	// GetFile retrieves a stored file by id. Returns (nil, nil) when the id
	// is unknown.
	GetFile(ctx context.Context, id int64) (*domain.File, error)

	// ListMessageFiles returns attachment metadata for a message.
	ListMessageFiles(ctx context.Context, messageID int64) ([]domain.FileInfo, error)

	// DeleteSession removes all messages and files for a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
