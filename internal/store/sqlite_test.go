package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/parleylabs/parley/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestAppendAndListMessagesPreservesOrder(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	inputs := []struct{ role, content string }{
		{domain.RoleUser, "hello"},
		{domain.RoleAssistant, "hi there"},
		{domain.RoleUser, "how are you?"},
	}
	for _, in := range inputs {
		if _, err := repo.AppendMessage(ctx, "sess-1", in.role, in.content, "deepseek-chat"); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}
	// A second session must not bleed into the first.
	if _, err := repo.AppendMessage(ctx, "sess-2", domain.RoleUser, "other", ""); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, err := repo.ListMessages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != len(inputs) {
		t.Fatalf("expected %d messages, got %d", len(inputs), len(messages))
	}
	for i, in := range inputs {
		if messages[i].Role != in.role || messages[i].Content != in.content {
			t.Errorf("position %d: got %+v, want %+v", i, messages[i], in)
		}
		if messages[i].Model != "deepseek-chat" {
			t.Errorf("position %d: model not stored: %+v", i, messages[i])
		}
	}
}

func TestListMessagesEmptySession(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	messages, err := repo.ListMessages(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty history, got %d messages", len(messages))
	}
}

func TestFileRoundtrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	msgID, err := repo.AppendMessage(ctx, "sess-1", domain.RoleUser, "see attachment", "")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	fileID, err := repo.AppendFile(ctx, msgID, "sess-1", "pic.png", "image/png", data)
	if err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}

	file, err := repo.GetFile(ctx, fileID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if file == nil {
		t.Fatal("expected file, got nil")
	}
	if file.Filename != "pic.png" || file.MediaType != "image/png" {
		t.Errorf("unexpected metadata: %+v", file)
	}
	if file.Size != int64(len(data)) || !bytes.Equal(file.Data, data) {
		t.Errorf("blob mismatch: size=%d data=%v", file.Size, file.Data)
	}

	infos, err := repo.ListMessageFiles(ctx, msgID)
	if err != nil {
		t.Fatalf("ListMessageFiles failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != fileID {
		t.Errorf("unexpected file listing: %+v", infos)
	}

	withFiles, err := repo.ListMessagesWithFiles(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListMessagesWithFiles failed: %v", err)
	}
	if len(withFiles) != 1 || len(withFiles[0].Files) != 1 {
		t.Errorf("expected one message with one file, got %+v", withFiles)
	}
}

func TestGetFileNotFoundReturnsNil(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	file, err := repo.GetFile(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if file != nil {
		t.Errorf("expected nil for unknown file id, got %+v", file)
	}
}

func TestDeleteSessionRemovesMessagesAndFiles(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	msgID, err := repo.AppendMessage(ctx, "sess-1", domain.RoleUser, "bye", "")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	fileID, err := repo.AppendFile(ctx, msgID, "sess-1", "f.txt", "text/plain", []byte("x"))
	if err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}

	if err := repo.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	messages, err := repo.ListMessages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages after delete, got %d", len(messages))
	}
	file, err := repo.GetFile(ctx, fileID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if file != nil {
		t.Errorf("expected file removed with session, got %+v", file)
	}
}
