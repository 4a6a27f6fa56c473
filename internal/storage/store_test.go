package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(Config{Driver: DriverSQLite, DSN: fmt.Sprintf("file:%s?mode=memory", t.Name())}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("unexpected migrate error: %v", err)
	}
	return store
}

func TestEnsureCandidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	created, isNew, err := store.EnsureCandidate(ctx, "5511987654321", "Candidato", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew || created.ID == "" || created.BotStatus != models.BotActive || created.Status != models.StatusNew {
		t.Fatalf("unexpected created candidate: %+v (new=%v)", created, isNew)
	}

	again, isNew, err := store.EnsureCandidate(ctx, "5511987654321", "Outro nome", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNew || again.ID != created.ID || again.Name != "Candidato" {
		t.Fatalf("existing candidate must be returned untouched: %+v", again)
	}
}

func TestUpdateCandidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, _, err := store.EnsureCandidate(ctx, "5511900000001", "Candidato", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	years := 6.0
	name := "Ana"
	updated, err := store.UpdateCandidate(ctx, "5511900000001", models.CandidateUpdate{Name: &name, YearsOfExperience: &years})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Ana" || updated.YearsOfExperience != 6 || updated.Seniority != models.SenioritySenior {
		t.Fatalf("unexpected candidate after update: %+v", updated)
	}

	bad := models.CandidateStatus("ghosted")
	if _, err := store.UpdateCandidate(ctx, "5511900000001", models.CandidateUpdate{Status: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected invalid status error, got %v", err)
	}

	if _, err := store.UpdateCandidate(ctx, "000", models.CandidateUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.SetBotStatus(ctx, "5511900000001", models.BotInactive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.GetCandidate(ctx, "5511900000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BotStatus != models.BotInactive {
		t.Fatalf("expected inactive bot, got %s", got.BotStatus)
	}
}

func TestAddMessageIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	phone := "5511900000002"
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	if _, _, err := store.EnsureCandidate(ctx, phone, "Candidato", base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := &models.Message{ID: "wamid.1", CandidatePhone: phone, Sender: models.SenderCandidate, Text: "oi", Timestamp: base.Add(time.Minute)}
	inserted, err := store.AddMessage(ctx, msg)
	if err != nil || !inserted {
		t.Fatalf("expected first insert, got inserted=%v err=%v", inserted, err)
	}

	dup := &models.Message{ID: "wamid.1", CandidatePhone: phone, Sender: models.SenderCandidate, Text: "oi", Timestamp: base.Add(time.Minute)}
	inserted, err = store.AddMessage(ctx, dup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate message must not be inserted")
	}

	second := &models.Message{ID: "local-2", CandidatePhone: phone, Sender: models.SenderBot, Text: "olá", Timestamp: base.Add(2 * time.Minute), IsRead: true}
	if _, err := store.AddMessage(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := store.ListMessages(ctx, phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "wamid.1" || msgs[1].ID != "local-2" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}

	c, err := store.GetCandidate(ctx, phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.LastMessageAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected last message time to follow newest message, got %v", c.LastMessageAt)
	}
}

func TestMarkAsReadOnlyCandidateMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	phone := "5511900000003"

	if _, _, err := store.EnsureCandidate(ctx, phone, "Candidato", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, sender := range []models.Sender{models.SenderCandidate, models.SenderCandidate, models.SenderBot} {
		msg := &models.Message{ID: fmt.Sprintf("m%d", i), CandidatePhone: phone, Sender: sender, Text: "x"}
		if _, err := store.AddMessage(ctx, msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	changed, err := store.MarkAsRead(ctx, phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed != 2 {
		t.Fatalf("expected 2 messages marked, got %d", changed)
	}
}

func TestDeleteCandidateCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	phone := "5511900000004"

	if _, _, err := store.EnsureCandidate(ctx, phone, "Candidato", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.AddMessage(ctx, &models.Message{ID: "d1", CandidatePhone: phone, Sender: models.SenderCandidate, Text: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteCandidate(ctx, phone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.GetCandidate(ctx, phone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected candidate to be gone, got %v", err)
	}
	msgs, err := store.ListMessages(ctx, phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected transcript to be deleted, got %d messages", len(msgs))
	}

	if err := store.DeleteCandidate(ctx, phone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSetPromptKeepsSingleActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.ActivePrompt(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active prompt, got %v", err)
	}

	for _, content := range []string{"first", "second", "third"} {
		if _, err := store.SetPrompt(ctx, content, "admin"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	active, err := store.ActivePrompt(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.Content != "third" || active.UpdatedBy != "admin" {
		t.Fatalf("unexpected active prompt: %+v", active)
	}

	history, err := store.PromptHistory(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("prompt history must be append-only, got %d rows", len(history))
	}

	activeCount := 0
	for _, p := range history {
		if p.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active prompt, got %d", activeCount)
	}

	if _, err := store.SetPrompt(ctx, "  ", "admin"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected invalid error for empty prompt, got %v", err)
	}
}

func TestJobsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := &models.Job{Title: "Go Developer", Description: "APIs", Seniority: "Mid", Location: "Remoto", RequiredSkills: []string{"Go", "SQL"}}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == "" || job.Status != models.JobOpen {
		t.Fatalf("unexpected created job: %+v", job)
	}

	open, err := store.ListJobs(ctx, models.JobOpen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 1 || len(open[0].RequiredSkills) != 2 {
		t.Fatalf("unexpected open jobs: %+v", open)
	}

	closed := models.JobClosed
	updated, err := store.UpdateJob(ctx, job.ID, models.JobUpdate{Status: &closed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.JobClosed || updated.ClosedAt == nil {
		t.Fatalf("closing a job must set closed_at: %+v", updated)
	}

	open, err = store.ListJobs(ctx, models.JobOpen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open jobs, got %d", len(open))
	}

	phone := "5511900000005"
	if _, _, err := store.EnsureCandidate(ctx, phone, "Candidato", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.UpdateCandidate(ctx, phone, models.CandidateUpdate{JobID: &job.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := store.GetCandidate(ctx, phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.JobID != nil {
		t.Fatalf("expected candidate to be detached from deleted job")
	}
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, phone := range []string{"5511900000010", "5511900000011"} {
		if _, _, err := store.EnsureCandidate(ctx, phone, "Candidato", base); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := 0; j < 2; j++ {
			msg := &models.Message{
				ID:             fmt.Sprintf("%s-%d", phone, j),
				CandidatePhone: phone,
				Sender:         models.SenderCandidate,
				Text:           "x",
				Timestamp:      base.Add(time.Duration(i*10+j+1) * time.Minute),
			}
			if _, err := store.AddMessage(ctx, msg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	list, err := store.ListConversations(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].Phone != "5511900000011" {
		t.Fatalf("expected most recent conversation first, got %+v", list)
	}
	if len(list[0].Messages) != 2 || !list[0].Messages[0].Timestamp.Before(list[0].Messages[1].Timestamp) {
		t.Fatalf("expected messages in ascending order: %+v", list[0].Messages)
	}
}
