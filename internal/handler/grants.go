package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

// GrantEvent описывает реакцию-похвалу на сообщение пользователя.
type GrantEvent struct {
	Kind      model.Kind
	GiverID   string
	AuthorID  string
	MessageID string
	ChannelID string
}

// Grants начисляет валюту по реакциям на сообщения. Повторные события
// платформы по одной паре (дающий, сообщение) приводят ровно к одному
// начислению.
type Grants struct {
	services map[model.Kind]LedgerService
	logger   *zap.Logger
}

// NewGrants создаёт обработчик начислений по реакциям.
func NewGrants(services map[model.Kind]LedgerService, logger *zap.Logger) *Grants {
	return &Grants{
		services: services,
		logger:   logger,
	}
}

// GrantOnReaction начисляет валюту за реакцию. Пустая строка означает
// штатный no-op: дубликат события, самоначисление или незнакомая валюта —
// отвечать в канал в этих случаях не нужно.
func (g *Grants) GrantOnReaction(ctx context.Context, ev GrantEvent) (string, error) {
	svc, ok := g.services[ev.Kind]
	if !ok {
		return "", nil
	}

	receiver, err := vo.NewUserID(ev.AuthorID)
	if err != nil {
		return "", err
	}
	giver, err := vo.NewUserID(ev.GiverID)
	if err != nil {
		return "", err
	}
	messageID, err := vo.NewMessageID(ev.MessageID)
	if err != nil {
		return "", err
	}

	text, err := svc.GivePoint(ctx, receiver, giver, messageID)
	if err != nil {
		return "", err
	}

	if text != "" {
		g.logger.Info("grant recorded",
			zap.String("kind", string(ev.Kind)),
			zap.String("giver", ev.GiverID),
			zap.String("receiver", ev.AuthorID),
			zap.String("messageID", ev.MessageID),
		)
	}

	return text, nil
}
