package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

// ReminderService определяет контракт логики напоминаний для обработчика.
type ReminderService interface {
	Remind(ctx context.Context, userID vo.UserID, channelID vo.ChannelID, message string, at time.Time) (string, error)
}

// RemindHandler обрабатывает команду remind: сохранить напоминание
// через заданное число минут.
type RemindHandler struct {
	svc     ReminderService
	logger  *zap.Logger
	metrics CommandMetrics
	now     func() time.Time
}

// NewRemindHandler создаёт обработчик команды remind. Метрики могут быть nil.
func NewRemindHandler(svc ReminderService, logger *zap.Logger, metrics CommandMetrics) *RemindHandler {
	if metrics == nil {
		metrics = nopCommandMetrics{}
	}
	return &RemindHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Names перечисляет команды обработчика.
func (h *RemindHandler) Names() []string {
	return []string{"remind"}
}

// IsHandle сообщает, берёт ли обработчик команду.
func (h *RemindHandler) IsHandle(command string) bool {
	return command == "remind"
}

// Handle сохраняет напоминание и отвечает подтверждением.
func (h *RemindHandler) Handle(ctx context.Context, ic *Interaction) error {
	text, err := h.remind(ctx, ic)
	if err != nil {
		if vo.IsValidationError(err) {
			h.metrics.IncCommand(ic.Command, "invalid")
			return ic.Reply(ctx, replyInvalidParameter)
		}

		h.metrics.IncCommand(ic.Command, "error")
		h.logger.Error("remind command error",
			zap.Error(err),
			zap.String("userID", ic.UserID),
			zap.String("correlationID", ic.CorrelationID.String()),
		)
		return ic.Reply(ctx, replyInternalError)
	}

	h.metrics.IncCommand(ic.Command, "ok")
	return ic.Reply(ctx, text)
}

func (h *RemindHandler) remind(ctx context.Context, ic *Interaction) (string, error) {
	userID, err := vo.NewUserID(ic.UserID)
	if err != nil {
		return "", err
	}
	channelID, err := vo.NewChannelID(ic.ChannelID)
	if err != nil {
		return "", err
	}

	message, ok := ic.StringOption("message")
	if !ok || message == "" {
		return "", &vo.ValidationError{Kind: "ReminderMessage", Value: message}
	}

	minutes, ok := ic.IntOption("minutes")
	if !ok || minutes <= 0 {
		return "", &vo.ValidationError{Kind: "ReminderMinutes", Value: minutes}
	}

	at := h.now().Add(time.Duration(minutes) * time.Minute)
	return h.svc.Remind(ctx, userID, channelID, message, at)
}
