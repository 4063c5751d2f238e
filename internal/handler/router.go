package handler

import (
	"context"
	"errors"
	"fmt"
)

// Handler обрабатывает команды взаимодействий.
type Handler interface {
	// Names перечисляет имена команд, на которые обработчик отвечает.
	Names() []string
	// IsHandle сообщает, берёт ли обработчик команду с данным именем.
	IsHandle(command string) bool
	// Handle обрабатывает взаимодействие и сам отвечает пользователю.
	Handle(ctx context.Context, ic *Interaction) error
}

// ErrUnhandledCommand возвращается, когда ни один обработчик не взял команду.
var ErrUnhandledCommand = errors.New("unhandled command")

// Router сопоставляет входящую команду ровно одному зарегистрированному
// обработчику.
type Router struct {
	handlers []Handler
	names    map[string]struct{}
}

// NewRouter создаёт пустой маршрутизатор команд.
func NewRouter() *Router {
	return &Router{
		names: make(map[string]struct{}),
	}
}

// Register добавляет обработчик. Повторная регистрация имени команды —
// ошибка конфигурации процесса, а не тихое затенение.
func (r *Router) Register(h Handler) error {
	for _, name := range h.Names() {
		if _, ok := r.names[name]; ok {
			return fmt.Errorf("command %q registered twice", name)
		}
	}
	for _, name := range h.Names() {
		r.names[name] = struct{}{}
	}
	r.handlers = append(r.handlers, h)
	return nil
}

// Handles сообщает, зарегистрирован ли обработчик для команды.
// Адаптер платформы публикует только команды, на которые есть обработчик.
func (r *Router) Handles(command string) bool {
	_, ok := r.names[command]
	return ok
}

// Dispatch вызывает первый обработчик, который берёт команду.
// Благодаря проверке в Register он единственный. Для неизвестной команды
// возвращается ErrUnhandledCommand.
func (r *Router) Dispatch(ctx context.Context, ic *Interaction) error {
	for _, h := range r.handlers {
		if h.IsHandle(ic.Command) {
			return h.Handle(ctx, ic)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnhandledCommand, ic.Command)
}
