package gateway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ledgerCommands описывает четыре команды одной валюты.
func ledgerCommands(prefix, title string) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        prefix + "-check",
			Description: fmt.Sprintf("%s: показать баланс", title),
		},
		{
			Name:        prefix + "-draw",
			Description: fmt.Sprintf("%s: разыграть предмет", title),
		},
		{
			Name:        prefix + "-items",
			Description: fmt.Sprintf("%s: список ваших предметов", title),
		},
		{
			Name:        prefix + "-exchange",
			Description: fmt.Sprintf("%s: обменять предмет на приз", title),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "item",
					Description: "Идентификатор предмета из списка",
					Required:    true,
				},
			},
		},
	}
}

// botCommands собирает команды к публикации. Необязательные команды вроде
// translate попадают в список, только если на них зарегистрирован обработчик:
// опубликованная команда без обработчика выглядит для пользователя как
// всегда неизвестная.
func botCommands(handles func(command string) bool) []*discordgo.ApplicationCommand {
	commands := ledgerCommands("point", "Очки")
	commands = append(commands, ledgerCommands("candy", "Конфеты")...)

	if handles("remind") {
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        "remind",
			Description: "Сохранить напоминание",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Текст напоминания",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "minutes",
					Description: "Через сколько минут напомнить",
					Required:    true,
				},
			},
		})
	}

	if handles("translate") {
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        "translate",
			Description: "Перевести текст",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "Текст для перевода",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "lang",
					Description: "Целевой язык (по умолчанию en)",
					Required:    false,
				},
			},
		})
	}

	return commands
}

// registerCommands публикует slash-команды бота для указанной гильдии.
func (g *Gateway) registerCommands() error {
	appID := g.session.State.User.ID
	if _, err := g.session.ApplicationCommandBulkOverwrite(appID, g.cfg.GuildID, botCommands(g.router.Handles)); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	return nil
}
