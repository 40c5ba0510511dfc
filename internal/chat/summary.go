package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lisanchat/internal/models"
	"lisanchat/internal/worker"
)

const (
	summaryMaxTokens  = 500
	summaryJobTimeout = 90 * time.Second
)

// Summarizer regenerates the short display summary of a conversation after
// each user message. The summary is a derived, best-effort artifact: a stale
// or unset summary is an acceptable degraded state, never an error. Jobs run
// on a per-conversation serial queue so regenerations for one conversation
// cannot race each other.
type Summarizer struct {
	store *Store
	llm   Completer
	queue *worker.Queue
}

// NewSummarizer builds a summarizer dispatching onto queue.
func NewSummarizer(store *Store, llm Completer, queue *worker.Queue) *Summarizer {
	return &Summarizer{store: store, llm: llm, queue: queue}
}

// Regenerate snapshots the conversation history now (before the pending
// message is persisted, so the transcript includes it exactly once) and
// dispatches the LLM call plus summary write asynchronously. The reply path
// is never blocked and never sees a summary failure.
func (s *Summarizer) Regenerate(ctx context.Context, conversationID int64, language, pendingMessage, modelID string) {
	history, err := s.store.LoadOrdered(ctx, conversationID)
	if err != nil {
		log.Printf("summary: load history for conversation %d: %v", conversationID, err)
		return
	}

	transcript := renderTranscript(history, pendingMessage)
	ok := s.queue.Submit(conversationID, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), summaryJobTimeout)
		defer cancel()
		s.run(jobCtx, conversationID, language, transcript, modelID)
	})
	if !ok {
		log.Printf("summary: queue full, dropping regeneration for conversation %d", conversationID)
	}
}

func (s *Summarizer) run(ctx context.Context, conversationID int64, language, transcript, modelID string) {
	tone := "English"
	if language == models.LanguageArabic {
		tone = "formal Arabic"
	}
	prompt := fmt.Sprintf("Summarize this conversation into a short phrase for display. Use %s tone:\n\n%s", tone, transcript)

	summary, err := s.llm.Complete(ctx, modelID, "", prompt, summaryMaxTokens)
	if err != nil {
		log.Printf("summary: generate for conversation %d: %v", conversationID, err)
		return
	}
	if err := s.store.UpdateSummary(ctx, conversationID, strings.TrimSpace(summary)); err != nil {
		log.Printf("summary: persist for conversation %d: %v", conversationID, err)
	}
}

// renderTranscript formats history as alternating User:/Assistant: lines and
// appends the not-yet-persisted user message as the final line.
func renderTranscript(history []*models.Message, pendingMessage string) string {
	var b strings.Builder
	for _, msg := range history {
		if msg == nil {
			continue
		}
		speaker := "Assistant"
		if msg.Role == models.RoleUser {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(pendingMessage)
	return b.String()
}
