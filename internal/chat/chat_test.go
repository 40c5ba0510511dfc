package chat

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"lisanchat/internal/config"
	"lisanchat/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertTestUser(t *testing.T, db *sql.DB, email, language string) int64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO users (email, password_hash, language, created_at) VALUES (?, '', ?, ?)`,
		email, language, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}

type llmCall struct {
	ModelID   string
	System    string
	Prompt    string
	MaxTokens int
}

// fakeLLM records calls and answers via fn, or fails with err.
type fakeLLM struct {
	mu    sync.Mutex
	err   error
	fn    func(call llmCall) string
	calls []llmCall
}

func (f *fakeLLM) Complete(_ context.Context, modelID, system, prompt string, maxTokens int) (string, error) {
	call := llmCall{ModelID: modelID, System: system, Prompt: prompt, MaxTokens: maxTokens}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.fn != nil {
		return f.fn(call), nil
	}
	return "ok", nil
}

func (f *fakeLLM) recorded() []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llmCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// staticLanguage resolves every account to one language.
type staticLanguage string

func (l staticLanguage) Language(context.Context, int64) (string, error) {
	return string(l), nil
}

var errLLMDown = errors.New("provider unreachable")
