package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'assistant', 'system')),
		content TEXT NOT NULL,
		model TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		media_type TEXT NOT NULL,
		data BLOB NOT NULL,
		size INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_session ON files(session_id);
	CREATE INDEX IF NOT EXISTS idx_files_message ON files(message_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendMessage appends one message to a session's durable history.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, role, content, model string) (int64, error) {
	query := `INSERT INTO messages (session_id, role, content, model, created_at) VALUES (?, ?, ?, ?, ?)`

	var modelArg interface{}
	if model != "" {
		modelArg = model
	}

	result, err := s.db.ExecContext(ctx, query, sessionID, role, content, modelArg, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message insert id: %w", err)
	}
	return id, nil
}

// ListMessages returns all messages for a session ordered by insertion.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error) {
	query := `
		SELECT id, role, content, model, created_at
		FROM messages WHERE session_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []domain.StoredMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// ListMessagesWithFiles returns a session's messages with their attachment
// metadata.
func (s *SQLiteStore) ListMessagesWithFiles(ctx context.Context, sessionID string) ([]MessageWithFiles, error) {
	messages, err := s.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]MessageWithFiles, 0, len(messages))
	for _, m := range messages {
		files, err := s.ListMessageFiles(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MessageWithFiles{StoredMessage: m, Files: files})
	}
	return out, nil
}

// AppendFile stores a binary attachment for a message.
func (s *SQLiteStore) AppendFile(ctx context.Context, messageID int64, sessionID, filename, mediaType string, data []byte) (int64, error) {
	query := `
		INSERT INTO files (message_id, session_id, filename, media_type, data, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		messageID, sessionID, filename, mediaType, data, int64(len(data)), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("append file: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("file insert id: %w", err)
	}
	return id, nil
}

// GetFile retrieves a stored file by id.
func (s *SQLiteStore) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	query := `
		SELECT id, message_id, session_id, filename, media_type, data, size, created_at
		FROM files WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var file domain.File
	var createdAt int64

	err := row.Scan(
		&file.ID, &file.MessageID, &file.SessionID,
		&file.Filename, &file.MediaType, &file.Data, &file.Size, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan file row: %w", err)
	}

	file.CreatedAt = time.Unix(createdAt, 0)
	return &file, nil
}

// ListMessageFiles returns attachment metadata for a message.
func (s *SQLiteStore) ListMessageFiles(ctx context.Context, messageID int64) ([]domain.FileInfo, error) {
	query := `SELECT id, filename, media_type, size FROM files WHERE message_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("query message files: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close file rows", "error", closeErr)
		}
	}()

	var files []domain.FileInfo
	for rows.Next() {
		var f domain.FileInfo
		if err := rows.Scan(&f.ID, &f.Filename, &f.MediaType, &f.Size); err != nil {
			return nil, fmt.Errorf("scan file info row: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message files: %w", err)
	}

	return files, nil
}

// DeleteSession removes all messages and files for a session. Retries with
// exponential backoff on SQLite concurrency errors.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.deleteSessionOnce(ctx, sessionID)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("DeleteSession hit SQLite conflict, retrying",
				"session_id", sessionID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}

	return nil
}

func (s *SQLiteStore) deleteSessionOnce(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session files: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session messages: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (domain.StoredMessage, error) {
	var msg domain.StoredMessage
	var model sql.NullString
	var createdAt int64

	if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &model, &createdAt); err != nil {
		return domain.StoredMessage{}, fmt.Errorf("scan message row: %w", err)
	}

	msg.Model = model.String
	msg.CreatedAt = time.Unix(createdAt, 0)
	return msg, nil
}
