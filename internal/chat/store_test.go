package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"lisanchat/internal/models"
)

func TestAppendThenLoadOrdered(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "a@b.com", "en")
	conv, err := store.CreateConversation(ctx, userID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if conv.Title != models.DefaultTitle || conv.Summary != "" {
		t.Fatalf("unexpected defaults: %+v", conv)
	}

	contents := []string{"first", "second", "third", "fourth"}
	for i, content := range contents {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if _, err := store.Append(ctx, conv.ID, role, content); err != nil {
			t.Fatalf("append %q: %v", content, err)
		}
	}

	messages, err := store.LoadOrdered(ctx, conv.ID)
	if err != nil {
		t.Fatalf("load ordered: %v", err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}
	for i, msg := range messages {
		if msg.Content != contents[i] {
			t.Fatalf("message %d out of order: got %q want %q", i, msg.Content, contents[i])
		}
		if i > 0 && messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("creation times not non-decreasing at index %d", i)
		}
	}

	// appending never reorders previously returned messages
	appended, err := store.Append(ctx, conv.ID, models.RoleUser, "fifth")
	if err != nil {
		t.Fatalf("append fifth: %v", err)
	}
	again, err := store.LoadOrdered(ctx, conv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(again))
	}
	for i := range messages {
		if again[i].ID != messages[i].ID {
			t.Fatalf("prefix reordered at index %d", i)
		}
	}
	last := again[len(again)-1]
	if last.ID != appended.ID || last.Role != models.RoleUser || last.Content != "fifth" {
		t.Fatalf("unexpected last message: %+v", last)
	}
}

func TestLoadOrderedUnknownConversationIsEmpty(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)

	messages, err := store.LoadOrdered(context.Background(), 424242)
	if err != nil {
		t.Fatalf("load ordered: %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Fatalf("expected empty slice, got %v", messages)
	}
}

func TestAppendValidation(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "a@b.com", "en")
	conv, err := store.CreateConversation(ctx, userID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	if _, err := store.Append(ctx, conv.ID, models.Role("system"), "x"); err == nil {
		t.Fatalf("expected error for system role")
	}
	if _, err := store.Append(ctx, conv.ID, models.RoleUser, "   "); err == nil {
		t.Fatalf("expected error for empty content")
	}
	if _, err := store.Append(ctx, 0, models.RoleUser, "x"); err == nil {
		t.Fatalf("expected error for missing conversation id")
	}
}

func TestGetConversationOwnership(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	owner := insertTestUser(t, db, "owner@b.com", "en")
	other := insertTestUser(t, db, "other@b.com", "en")
	conv, err := store.CreateConversation(ctx, owner)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	if _, err := store.GetConversation(ctx, owner, conv.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := store.GetConversation(ctx, other, conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for non-owner, got %v", err)
	}
	if _, err := store.GetConversation(ctx, owner, 999); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for missing id, got %v", err)
	}
}

func TestUpdateSummaryBumpsUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "a@b.com", "en")
	conv, err := store.CreateConversation(ctx, userID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := store.UpdateSummary(ctx, conv.ID, "talking about go"); err != nil {
		t.Fatalf("update summary: %v", err)
	}

	updated, err := store.GetConversation(ctx, userID, conv.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if updated.Summary != "talking about go" {
		t.Fatalf("unexpected summary: %q", updated.Summary)
	}
	if !updated.UpdatedAt.After(conv.UpdatedAt) {
		t.Fatalf("updated_at not bumped: %v -> %v", conv.UpdatedAt, updated.UpdatedAt)
	}

	if err := store.UpdateSummary(ctx, 999, "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestListConversationsOrderedByUpdate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	userID := insertTestUser(t, db, "a@b.com", "en")
	first, err := store.CreateConversation(ctx, userID)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := store.CreateConversation(ctx, userID)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	convs, err := store.ListConversations(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != second.ID {
		t.Fatalf("expected most recent first, got %+v", convs)
	}

	// a summary update moves the conversation to the top
	time.Sleep(5 * time.Millisecond)
	if err := store.UpdateSummary(ctx, first.ID, "revived"); err != nil {
		t.Fatalf("update summary: %v", err)
	}
	convs, err = store.ListConversations(ctx, userID)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if convs[0].ID != first.ID {
		t.Fatalf("expected summary update to reorder, got %+v", convs)
	}
}
