package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

// ReminderRepository описывает контракт доступа к данным напоминаний.
type ReminderRepository interface {
	CreateReminder(ctx context.Context, userID, channelID, message string, remindAt time.Time) (int64, error)
	FindDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64) error
}

// Notifier доставляет сообщение в канал платформы.
type Notifier interface {
	Notify(ctx context.Context, channelID, content string) error
}

// ReminderService хранит напоминания и раз в минуту рассылает наступившие.
type ReminderService struct {
	repo     ReminderRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReminderService создаёт сервис напоминаний.
func NewReminderService(repo ReminderRepository, notifier Notifier, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Remind сохраняет напоминание и возвращает подтверждение.
func (s *ReminderService) Remind(ctx context.Context, userID vo.UserID, channelID vo.ChannelID, message string, at time.Time) (string, error) {
	if message == "" {
		return "", &vo.ValidationError{Kind: "ReminderMessage", Value: message}
	}
	if !at.After(s.now()) {
		return "", &vo.ValidationError{Kind: "RemindAt", Value: at}
	}

	_, err := s.repo.CreateReminder(ctx, userID.String(), channelID.String(), message, at)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Напоминание сохранено на %s.", at.Format("02.01.2006 15:04")), nil
}

// SweepDue рассылает наступившие напоминания. Неотправленное напоминание
// остаётся PENDING и будет подхвачено следующим проходом.
func (s *ReminderService) SweepDue(ctx context.Context, now time.Time) error {
	due, err := s.repo.FindDueReminders(ctx, now, 100)
	if err != nil {
		return err
	}

	for _, rem := range due {
		content := fmt.Sprintf("<@%s>, напоминание: %s", rem.UserID, rem.Message)
		if err := s.notifier.Notify(ctx, rem.ChannelID, content); err != nil {
			s.logger.Error("notify reminder error", zap.Error(err), zap.Int64("reminderID", rem.ID))
			continue
		}

		if err := s.repo.MarkReminderSent(ctx, rem.ID); err != nil {
			s.logger.Error("mark reminder sent error", zap.Error(err), zap.Int64("reminderID", rem.ID))
		}
	}

	return nil
}

// StartSweeper запускает фоновую рассылку напоминаний раз в минуту.
func (s *ReminderService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SweepDue(ctx, s.now()); err != nil {
					s.logger.Error("sweep reminders error", zap.Error(err))
				}
			}
		}
	}()
}
