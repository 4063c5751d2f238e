package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

type memReminderRepo struct {
	nextID    int64
	reminders map[int64]*model.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{reminders: make(map[int64]*model.Reminder)}
}

func (r *memReminderRepo) CreateReminder(ctx context.Context, userID, channelID, message string, remindAt time.Time) (int64, error) {
	r.nextID++
	r.reminders[r.nextID] = &model.Reminder{
		ID:        r.nextID,
		UserID:    userID,
		ChannelID: channelID,
		Message:   message,
		Status:    model.ReminderStatusPending,
		RemindAt:  remindAt,
	}
	return r.nextID, nil
}

func (r *memReminderRepo) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	var due []model.Reminder
	for _, rem := range r.reminders {
		if rem.Status == model.ReminderStatusPending && !rem.RemindAt.After(now) {
			due = append(due, *rem)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r *memReminderRepo) MarkReminderSent(ctx context.Context, id int64) error {
	rem, ok := r.reminders[id]
	if !ok {
		return errors.New("reminder not found")
	}
	rem.Status = model.ReminderStatusSent
	return nil
}

type stubNotifier struct {
	sent []string
	err  error
}

func (n *stubNotifier) Notify(ctx context.Context, channelID, content string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, content)
	return nil
}

func mustChannelID(t *testing.T, raw string) vo.ChannelID {
	t.Helper()
	id, err := vo.NewChannelID(raw)
	if err != nil {
		t.Fatalf("NewChannelID error: %v", err)
	}
	return id
}

func TestRemind_StoresAndConfirms(t *testing.T) {
	repo := newMemReminderRepo()
	svc := NewReminderService(repo, &stubNotifier{}, zap.NewNop())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	text, err := svc.Remind(context.Background(), mustUserID(t, "111111111"), mustChannelID(t, "555555555"), "выпить воды", base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Remind error: %v", err)
	}
	if !strings.Contains(text, "Напоминание сохранено") {
		t.Fatalf("unexpected confirmation: %q", text)
	}
	if len(repo.reminders) != 1 {
		t.Fatalf("reminders stored = %d, want 1", len(repo.reminders))
	}
}

func TestRemind_RejectsPastAndEmpty(t *testing.T) {
	repo := newMemReminderRepo()
	svc := NewReminderService(repo, &stubNotifier{}, zap.NewNop())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	userID := mustUserID(t, "111111111")
	channelID := mustChannelID(t, "555555555")

	_, err := svc.Remind(context.Background(), userID, channelID, "", base.Add(time.Minute))
	if !vo.IsValidationError(err) {
		t.Fatalf("empty message error = %v, want ValidationError", err)
	}

	_, err = svc.Remind(context.Background(), userID, channelID, "поздно", base.Add(-time.Minute))
	if !vo.IsValidationError(err) {
		t.Fatalf("past time error = %v, want ValidationError", err)
	}

	if len(repo.reminders) != 0 {
		t.Fatalf("rejected reminders must not be stored")
	}
}

func TestSweepDue_SendsAndMarks(t *testing.T) {
	repo := newMemReminderRepo()
	notifier := &stubNotifier{}
	svc := NewReminderService(repo, notifier, zap.NewNop())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo.CreateReminder(context.Background(), "111111111", "555555555", "наступило", base.Add(-time.Minute))
	repo.CreateReminder(context.Background(), "111111111", "555555555", "ещё рано", base.Add(time.Hour))

	if err := svc.SweepDue(context.Background(), base); err != nil {
		t.Fatalf("SweepDue error: %v", err)
	}

	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "наступило") {
		t.Fatalf("sent = %v, want exactly the due reminder", notifier.sent)
	}
	if repo.reminders[1].Status != model.ReminderStatusSent {
		t.Fatalf("due reminder must be marked sent")
	}
	if repo.reminders[2].Status != model.ReminderStatusPending {
		t.Fatalf("future reminder must stay pending")
	}
}

func TestSweepDue_NotifyFailureKeepsPending(t *testing.T) {
	repo := newMemReminderRepo()
	notifier := &stubNotifier{err: errors.New("gateway closed")}
	svc := NewReminderService(repo, notifier, zap.NewNop())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo.CreateReminder(context.Background(), "111111111", "555555555", "наступило", base.Add(-time.Minute))

	if err := svc.SweepDue(context.Background(), base); err != nil {
		t.Fatalf("SweepDue error: %v", err)
	}
	if repo.reminders[1].Status != model.ReminderStatusPending {
		t.Fatalf("undelivered reminder must stay pending for the next sweep")
	}

	// Следующий проход доставляет его после восстановления канала.
	notifier.err = nil
	if err := svc.SweepDue(context.Background(), base.Add(time.Minute)); err != nil {
		t.Fatalf("SweepDue error: %v", err)
	}
	if repo.reminders[1].Status != model.ReminderStatusSent {
		t.Fatalf("reminder must be sent on the retry sweep")
	}
}
