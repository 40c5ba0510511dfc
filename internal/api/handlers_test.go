package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"

	"lisanchat/internal/auth"
	"lisanchat/internal/chat"
	"lisanchat/internal/i18n"
	"lisanchat/internal/storage"
	"lisanchat/internal/worker"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, modelID, system, prompt string, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "ok", nil
}

type testEnv struct {
	router *gin.Engine
	queue  *worker.Queue
	db     *sql.DB
}

func newTestEnv(t *testing.T, llm chat.Completer) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	authService := auth.NewService(db, nil, "test-secret", time.Hour)
	store := chat.NewStore(db)
	queue := worker.NewQueue(16)
	t.Cleanup(queue.Wait)
	translator := chat.NewTranslator(llm, nil)
	summarizer := chat.NewSummarizer(store, llm, queue)
	chatService := chat.NewService(store, llm, authService, translator, summarizer)

	router := gin.New()
	NewHandler(chatService, authService, nil).RegisterRoutes(router)

	return &testEnv{router: router, queue: queue, db: db}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func signUpUser(t *testing.T, env *testEnv, email, language string) (int64, string) {
	t.Helper()
	w := env.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    email,
		"password": "hunter22",
		"language": language,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	user, _ := body["user"].(map[string]any)
	id, _ := user["id"].(float64)
	if token == "" || id == 0 {
		t.Fatalf("signup response missing token or user id: %s", w.Body.String())
	}
	return int64(id), token
}

func TestSignUpSignInChatAndLoad(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{reply: "hello from the model"})
	_, _ = signUpUser(t, env, "alice@example.com", "en")

	w := env.do(http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatal("signin response missing token")
	}

	w = env.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "hi there"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["reply"] != "hello from the model" {
		t.Fatalf("reply = %v", body["reply"])
	}
	convID, _ := body["conversationId"].(float64)
	if convID == 0 {
		t.Fatal("chat response missing conversationId")
	}
	env.queue.Wait()

	w = env.do(http.MethodGet, fmt.Sprintf("/api/chat/conversation/%d", int64(convID)), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d, body %s", w.Code, w.Body.String())
	}
	conv, _ := decodeBody(t, w)["conversation"].(map[string]any)
	msgs, _ := conv["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
}

func TestSignUpDuplicateEmailLocalized(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	signUpUser(t, env, "dup@example.com", "ar")

	w := env.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "dup@example.com",
		"password": "hunter22",
		"language": "ar",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	errMsg, _ := decodeBody(t, w)["error"].(string)
	if want := i18n.T("auth.userExists", "ar"); errMsg != want {
		t.Fatalf("error = %q, want %q", errMsg, want)
	}
}

func TestChatRequiresToken(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})

	w := env.do(http.MethodPost, "/api/chat", "", map[string]string{"message": "hi"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	_, token := signUpUser(t, env, "empty@example.com", "en")

	w := env.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if errMsg, _ := decodeBody(t, w)["error"].(string); errMsg == "" {
		t.Fatal("expected localized error message")
	}
}

func TestLoadConversationNotFound(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	_, token := signUpUser(t, env, "missing@example.com", "en")

	w := env.do(http.MethodGet, "/api/chat/conversation/999", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestListConversationsRejectsOtherUser(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	id, token := signUpUser(t, env, "owner@example.com", "en")

	w := env.do(http.MethodGet, fmt.Sprintf("/api/chat/user/%d", id+1), token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestListConversationsEmpty(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	id, token := signUpUser(t, env, "nolist@example.com", "en")

	w := env.do(http.MethodGet, fmt.Sprintf("/api/chat/user/%d", id), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	convs, ok := decodeBody(t, w)["conversations"].([]any)
	if !ok {
		t.Fatalf("conversations missing from body %s", w.Body.String())
	}
	if len(convs) != 0 {
		t.Fatalf("conversations = %d, want 0", len(convs))
	}
}

func TestUpdateLanguage(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{})
	id, token := signUpUser(t, env, "lang@example.com", "en")

	w := env.do(http.MethodPut, fmt.Sprintf("/api/user/%d", id), token, map[string]string{"language": "ar"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if msg, _ := decodeBody(t, w)["message"].(string); msg == "" {
		t.Fatal("expected confirmation message")
	}

	w = env.do(http.MethodPut, fmt.Sprintf("/api/user/%d", id), token, map[string]string{"language": "fr"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid language status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestChatReplyFailureIsLocalized(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{err: fmt.Errorf("model unavailable")})
	_, token := signUpUser(t, env, "down@example.com", "en")

	w := env.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if errMsg, _ := decodeBody(t, w)["error"].(string); errMsg == "" {
		t.Fatal("expected localized error body")
	}
}
