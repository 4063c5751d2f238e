// Package gateway адаптирует события Discord к внутренней маршрутизации команд.
// Протокольная логика платформы остаётся в discordgo: здесь только перевод
// событий в типизированные взаимодействия и отправка ответов.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/handler"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
)

// Config задаёт параметры подключения к Discord.
type Config struct {
	Token   string
	GuildID string
	// EmojiKinds сопоставляет имя эмодзи-реакции валютной подсистеме.
	EmojiKinds map[string]model.Kind
}

// Gateway держит сессию Discord и переводит её события в вызовы обработчиков.
type Gateway struct {
	cfg     Config
	session *discordgo.Session
	router  *handler.Router
	grants  *handler.Grants
	logger  *zap.Logger
}

// New создаёт шлюз с подписками на команды и реакции.
func New(cfg Config, router *handler.Router, grants *handler.Grants, logger *zap.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions

	g := &Gateway{
		cfg:     cfg,
		session: session,
		router:  router,
		grants:  grants,
		logger:  logger,
	}

	session.AddHandler(g.onInteractionCreate)
	session.AddHandler(g.onReactionAdd)

	return g, nil
}

// Open открывает сессию и публикует slash-команды.
func (g *Gateway) Open(ctx context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if err := g.registerCommands(); err != nil {
		g.session.Close()
		return err
	}

	return nil
}

// Close закрывает сессию Discord.
func (g *Gateway) Close() error {
	return g.session.Close()
}

// Notify отправляет сообщение в канал. Используется сервисом напоминаний.
func (g *Gateway) Notify(ctx context.Context, channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

func (g *Gateway) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()

	var userID string
	switch {
	case i.Member != nil && i.Member.User != nil:
		userID = i.Member.User.ID
	case i.User != nil:
		userID = i.User.ID
	}

	ic := handler.NewInteraction(data.Name, userID, i.ChannelID, &interactionResponder{
		session:     s,
		interaction: i.Interaction,
	})

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			ic.SetStringOption(opt.Name, opt.StringValue())
		case discordgo.ApplicationCommandOptionInteger:
			ic.SetIntOption(opt.Name, opt.IntValue())
		}
	}

	ctx := context.Background()

	err := g.router.Dispatch(ctx, ic)
	if err == nil {
		return
	}

	if errors.Is(err, handler.ErrUnhandledCommand) {
		g.logger.Warn("unhandled command", zap.String("command", data.Name))
		if rerr := ic.Reply(ctx, "Неизвестная команда."); rerr != nil {
			g.logger.Error("reply error", zap.Error(rerr), zap.String("command", data.Name))
		}
		return
	}

	g.logger.Error("dispatch error",
		zap.Error(err),
		zap.String("command", data.Name),
		zap.String("userID", userID),
	)
}

func (g *Gateway) onReactionAdd(s *discordgo.Session, m *discordgo.MessageReactionAdd) {
	kind, ok := g.cfg.EmojiKinds[m.Emoji.Name]
	if !ok {
		return
	}

	ctx := context.Background()

	msg, err := s.ChannelMessage(m.ChannelID, m.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.Error("fetch reacted message error", zap.Error(err), zap.String("messageID", m.MessageID))
		return
	}
	if msg.Author == nil || msg.Author.Bot {
		return
	}

	text, err := g.grants.GrantOnReaction(ctx, handler.GrantEvent{
		Kind:      kind,
		GiverID:   m.UserID,
		AuthorID:  msg.Author.ID,
		MessageID: m.MessageID,
		ChannelID: m.ChannelID,
	})
	if err != nil {
		g.logger.Error("grant on reaction error", zap.Error(err), zap.String("messageID", m.MessageID))
		return
	}
	if text == "" {
		return
	}

	if err := g.Notify(ctx, m.ChannelID, text); err != nil {
		g.logger.Error("grant notify error", zap.Error(err), zap.String("channelID", m.ChannelID))
	}
}

// interactionResponder отвечает на конкретное взаимодействие через сессию.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Reply(ctx context.Context, content string) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}, discordgo.WithContext(ctx))
}

func (r *interactionResponder) EditReply(ctx context.Context, content string) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx))
	return err
}
