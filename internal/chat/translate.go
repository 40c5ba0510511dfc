package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"lisanchat/internal/cache"
	"lisanchat/internal/models"
)

const (
	translateMaxTokens = 1000
	translateCacheTTL  = 24 * time.Hour
)

// Completer is the LLM capability consumed by the chat core: one role-tagged
// prompt in, generated text out. Failures are opaque and unpredictable.
type Completer interface {
	Complete(ctx context.Context, modelID, system, prompt string, maxTokens int) (string, error)
}

// Translator converts stored content into the caller's preferred language
// via the LLM. Translation is strictly best effort: any failure returns the
// original text untranslated.
type Translator struct {
	llm   Completer
	cache *cache.Client
}

// NewTranslator builds a translator; cacheClient may be nil.
func NewTranslator(llm Completer, cacheClient *cache.Client) *Translator {
	return &Translator{llm: llm, cache: cacheClient}
}

// Translate returns text rendered in targetLang, or text unchanged when the
// LLM call fails for any reason.
func (t *Translator) Translate(ctx context.Context, text, targetLang, modelID string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	key := translationCacheKey(text, targetLang)
	if cached, err := t.cache.Get(ctx, key); err == nil && cached != "" {
		return cached
	}

	var prompt string
	if targetLang == models.LanguageArabic {
		prompt = fmt.Sprintf("Translate the following text into formal Arabic preserving meaning:\n%s", text)
	} else {
		prompt = fmt.Sprintf("Translate the following text into English preserving meaning:\n%s", text)
	}

	translated, err := t.llm.Complete(ctx, modelID, "", prompt, translateMaxTokens)
	if err != nil {
		log.Printf("translation failed, returning original: %v", err)
		return text
	}
	_ = t.cache.Set(ctx, key, translated, translateCacheTTL)
	return translated
}

// TranslateBatch translates every message's content independently and in
// parallel, preserving order, length, and all other fields. A failed item
// falls back to its original content without affecting the others.
func (t *Translator) TranslateBatch(ctx context.Context, messages []*models.Message, targetLang, modelID string) []*models.Message {
	out := make([]*models.Message, len(messages))
	var wg sync.WaitGroup
	for i, msg := range messages {
		if msg == nil {
			continue
		}
		wg.Add(1)
		go func(i int, msg models.Message) {
			defer wg.Done()
			msg.Content = t.Translate(ctx, msg.Content, targetLang, modelID)
			out[i] = &msg
		}(i, *msg)
	}
	wg.Wait()
	return out
}

func translationCacheKey(text, lang string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("translate:%s:%s", lang, hex.EncodeToString(sum[:]))
}
