package handler

import (
	"context"

	"go.uber.org/zap"
)

// Translator определяет контракт внешнего сервиса перевода.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TranslateHandler обрабатывает команду translate через внешний сервис перевода.
type TranslateHandler struct {
	translator Translator
	logger     *zap.Logger
	metrics    CommandMetrics
}

// NewTranslateHandler создаёт обработчик команды translate. Метрики могут быть nil.
func NewTranslateHandler(translator Translator, logger *zap.Logger, metrics CommandMetrics) *TranslateHandler {
	if metrics == nil {
		metrics = nopCommandMetrics{}
	}
	return &TranslateHandler{
		translator: translator,
		logger:     logger,
		metrics:    metrics,
	}
}

// Names перечисляет команды обработчика.
func (h *TranslateHandler) Names() []string {
	return []string{"translate"}
}

// IsHandle сообщает, берёт ли обработчик команду.
func (h *TranslateHandler) IsHandle(command string) bool {
	return command == "translate"
}

// Handle переводит текст из опции и отвечает результатом.
func (h *TranslateHandler) Handle(ctx context.Context, ic *Interaction) error {
	text, ok := ic.StringOption("text")
	if !ok || text == "" {
		h.metrics.IncCommand(ic.Command, "invalid")
		return ic.Reply(ctx, replyInvalidParameter)
	}

	targetLang, ok := ic.StringOption("lang")
	if !ok || targetLang == "" {
		targetLang = "en"
	}

	translated, err := h.translator.Translate(ctx, text, targetLang)
	if err != nil {
		h.metrics.IncCommand(ic.Command, "error")
		h.logger.Error("translate command error",
			zap.Error(err),
			zap.String("correlationID", ic.CorrelationID.String()),
		)
		return ic.Reply(ctx, replyInternalError)
	}

	h.metrics.IncCommand(ic.Command, "ok")
	return ic.Reply(ctx, translated)
}
