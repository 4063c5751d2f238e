package handler

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

// LedgerService определяет контракт бизнес-логики валюты, используемый обработчиками.
type LedgerService interface {
	Check(ctx context.Context, userID vo.UserID) (string, error)
	DrawItem(ctx context.Context, userID vo.UserID) (string, error)
	Exchange(ctx context.Context, userID vo.UserID, userItemID vo.UserItemID) (string, error)
	GetItems(ctx context.Context, userID vo.UserID) (string, error)
	GivePoint(ctx context.Context, receiver, giver vo.UserID, messageID vo.MessageID) (string, error)
}

// CommandMetrics учитывает обработанные команды.
type CommandMetrics interface {
	IncCommand(command, outcome string)
}

type nopCommandMetrics struct{}

func (nopCommandMetrics) IncCommand(string, string) {}

const (
	replyInvalidParameter = "Некорректный параметр команды."
	replyInternalError    = "Что-то пошло не так, попробуйте позже."
)

// LedgerHandler обрабатывает команды одной валюты: check, draw, items, exchange.
// Один и тот же обработчик регистрируется под префиксами point и candy.
type LedgerHandler struct {
	command string
	svc     LedgerService
	logger  *zap.Logger
	metrics CommandMetrics
}

// NewLedgerHandler создаёт обработчик команд валюты с указанным префиксом.
// Метрики могут быть nil.
func NewLedgerHandler(command string, svc LedgerService, logger *zap.Logger, metrics CommandMetrics) *LedgerHandler {
	if metrics == nil {
		metrics = nopCommandMetrics{}
	}
	return &LedgerHandler{
		command: command,
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// Names перечисляет команды обработчика.
func (h *LedgerHandler) Names() []string {
	return []string{
		h.command + "-check",
		h.command + "-draw",
		h.command + "-items",
		h.command + "-exchange",
	}
}

// IsHandle сообщает, берёт ли обработчик команду.
func (h *LedgerHandler) IsHandle(command string) bool {
	return slices.Contains(h.Names(), command)
}

// Handle строит объекты-значения из сырых опций, вызывает логику и отвечает
// ровно один раз. Ошибка валидации превращается в ответ о некорректном
// параметре, всё остальное — в общий ответ об ошибке с логированием причины.
func (h *LedgerHandler) Handle(ctx context.Context, ic *Interaction) error {
	text, err := h.dispatch(ctx, ic)
	if err != nil {
		if vo.IsValidationError(err) {
			h.metrics.IncCommand(ic.Command, "invalid")
			return ic.Reply(ctx, replyInvalidParameter)
		}

		h.metrics.IncCommand(ic.Command, "error")
		h.logger.Error("ledger command error",
			zap.Error(err),
			zap.String("command", ic.Command),
			zap.String("userID", ic.UserID),
			zap.String("correlationID", ic.CorrelationID.String()),
		)
		return ic.Reply(ctx, replyInternalError)
	}

	h.metrics.IncCommand(ic.Command, "ok")
	return ic.Reply(ctx, text)
}

func (h *LedgerHandler) dispatch(ctx context.Context, ic *Interaction) (string, error) {
	userID, err := vo.NewUserID(ic.UserID)
	if err != nil {
		return "", err
	}

	switch ic.Command {
	case h.command + "-check":
		return h.svc.Check(ctx, userID)
	case h.command + "-draw":
		return h.svc.DrawItem(ctx, userID)
	case h.command + "-items":
		return h.svc.GetItems(ctx, userID)
	case h.command + "-exchange":
		raw, ok := ic.IntOption("item")
		if !ok {
			return "", &vo.ValidationError{Kind: "UserItemID", Value: nil}
		}
		userItemID, err := vo.NewUserItemID(raw)
		if err != nil {
			return "", err
		}
		return h.svc.Exchange(ctx, userID, userItemID)
	default:
		// Сюда не попадаем: Router отдаёт только команды из Names.
		return "", ErrUnhandledCommand
	}
}
