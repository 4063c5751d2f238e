// Package handler содержит обработчики команд взаимодействий и их маршрутизацию.
package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Responder отправляет ответ на взаимодействие. Реализацию предоставляет
// адаптер платформы.
type Responder interface {
	Reply(ctx context.Context, content string) error
	EditReply(ctx context.Context, content string) error
}

// ErrAlreadyReplied возвращается при попытке ответить на взаимодействие второй раз.
var ErrAlreadyReplied = errors.New("interaction already replied")

// Interaction — типизированное событие команды от платформы:
// имя команды, значения опций и возможность ответить ровно один раз.
type Interaction struct {
	CorrelationID uuid.UUID
	Command       string
	UserID        string
	ChannelID     string

	strOptions map[string]string
	intOptions map[string]int64

	responder Responder
	replied   bool
}

// NewInteraction создаёт взаимодействие с новым корреляционным идентификатором.
func NewInteraction(command, userID, channelID string, responder Responder) *Interaction {
	return &Interaction{
		CorrelationID: uuid.New(),
		Command:       command,
		UserID:        userID,
		ChannelID:     channelID,
		strOptions:    make(map[string]string),
		intOptions:    make(map[string]int64),
		responder:     responder,
	}
}

// SetStringOption записывает строковую опцию команды.
func (ic *Interaction) SetStringOption(name, value string) {
	ic.strOptions[name] = value
}

// SetIntOption записывает целочисленную опцию команды.
func (ic *Interaction) SetIntOption(name string, value int64) {
	ic.intOptions[name] = value
}

// StringOption возвращает строковую опцию команды.
func (ic *Interaction) StringOption(name string) (string, bool) {
	v, ok := ic.strOptions[name]
	return v, ok
}

// IntOption возвращает целочисленную опцию команды.
func (ic *Interaction) IntOption(name string) (int64, bool) {
	v, ok := ic.intOptions[name]
	return v, ok
}

// Reply отправляет единственный ответ на взаимодействие.
func (ic *Interaction) Reply(ctx context.Context, content string) error {
	if ic.replied {
		return ErrAlreadyReplied
	}
	if err := ic.responder.Reply(ctx, content); err != nil {
		return err
	}
	ic.replied = true
	return nil
}

// EditReply заменяет отложенный ответ; тоже считается единственным ответом.
func (ic *Interaction) EditReply(ctx context.Context, content string) error {
	if ic.replied {
		return ErrAlreadyReplied
	}
	if err := ic.responder.EditReply(ctx, content); err != nil {
		return err
	}
	ic.replied = true
	return nil
}

// Replied сообщает, был ли уже отправлен ответ.
func (ic *Interaction) Replied() bool {
	return ic.replied
}
