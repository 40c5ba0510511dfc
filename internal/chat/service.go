// Package chat implements the conversation/message orchestration core:
// conversation lifecycle, append-only message persistence, best-effort
// summary regeneration, and translation of stored history.
package chat

import (
	"context"
	"errors"
	"fmt"

	"lisanchat/internal/models"
)

const (
	replyMaxTokens    = 1000
	systemInstruction = "You are a helpful assistant."
)

// ErrReplyGeneration marks a failed LLM reply call. The orchestrator fails
// the whole request on it; handlers map it to a generic chat error and never
// expose the provider failure verbatim.
var ErrReplyGeneration = errors.New("reply generation failed")

// LanguageResolver supplies the account's preferred language; account data
// is otherwise outside this core.
type LanguageResolver interface {
	Language(ctx context.Context, userID int64) (string, error)
}

// ConversationView is a conversation with its ordered message sequence
// attached, as returned to API callers.
type ConversationView struct {
	models.Conversation
	Messages []*models.Message `json:"messages"`
}

// Service coordinates the chat flow: conversation resolution, message
// persistence, reply generation, summaries, and translated retrieval.
type Service struct {
	store      *Store
	llm        Completer
	languages  LanguageResolver
	translator *Translator
	summarizer *Summarizer
}

// NewService wires the orchestrator.
func NewService(store *Store, llm Completer, languages LanguageResolver, translator *Translator, summarizer *Summarizer) *Service {
	return &Service{
		store:      store,
		llm:        llm,
		languages:  languages,
		translator: translator,
		summarizer: summarizer,
	}
}

// HandleChat persists the inbound user message, obtains a model reply, and
// persists that too. conversationID == 0 creates a new conversation owned by
// userID. Within one call the user message is always persisted strictly
// before the assistant reply; there is no cross-request ordering guarantee
// for one conversation.
//
// When reply generation fails the whole call fails, but the already-written
// conversation and user message stay in place; a retry by the caller will
// append the message again.
func (s *Service) HandleChat(ctx context.Context, userID, conversationID int64, message, modelID string) (int64, string, error) {
	lang, err := s.languages.Language(ctx, userID)
	if err != nil {
		return 0, "", fmt.Errorf("resolve language: %w", err)
	}

	if conversationID == 0 {
		conv, err := s.store.CreateConversation(ctx, userID)
		if err != nil {
			return 0, "", err
		}
		conversationID = conv.ID
	}

	// Summary context is snapshotted before the append so the transcript
	// includes the pending message exactly once.
	s.summarizer.Regenerate(ctx, conversationID, lang, message, modelID)

	if _, err := s.store.Append(ctx, conversationID, models.RoleUser, message); err != nil {
		return conversationID, "", err
	}

	reply, err := s.llm.Complete(ctx, modelID, systemInstruction, replyPrompt(lang, message), replyMaxTokens)
	if err != nil {
		return conversationID, "", fmt.Errorf("%w: %v", ErrReplyGeneration, err)
	}

	if _, err := s.store.Append(ctx, conversationID, models.RoleAssistant, reply); err != nil {
		return conversationID, "", err
	}
	return conversationID, reply, nil
}

// LoadConversation returns the conversation with every message translated
// into the caller's preferred language. Translation is unconditional; it
// does not try to detect the source language first.
func (s *Service) LoadConversation(ctx context.Context, userID, conversationID int64) (*ConversationView, error) {
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	lang, err := s.languages.Language(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve language: %w", err)
	}

	messages, err := s.store.LoadOrdered(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &ConversationView{
		Conversation: *conv,
		Messages:     s.translator.TranslateBatch(ctx, messages, lang, ""),
	}, nil
}

// ListConversations returns all of the user's conversations ordered by last
// update descending, each with its full untranslated message sequence.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]*ConversationView, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, 0, len(convs))
	for _, conv := range convs {
		messages, err := s.store.LoadOrdered(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &ConversationView{Conversation: *conv, Messages: messages})
	}
	return views, nil
}

func replyPrompt(lang, message string) string {
	if lang == models.LanguageArabic {
		return fmt.Sprintf("اكتب ردًا باللغة العربية على الرسالة التالية: %q", message)
	}
	return fmt.Sprintf("Write a response in English to the following message: %q", message)
}
