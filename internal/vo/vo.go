// Package vo содержит объекты-значения: неизменяемые обёртки над примитивами,
// проверяемые в момент создания. Все значения, пересекающие границу
// логики и репозитория, проходят через конструкторы этого пакета, поэтому
// нижележащим слоям повторная валидация не нужна.
package vo

import (
	"errors"
	"fmt"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
)

// ValidationError возвращается конструктором объекта-значения,
// когда валидатор отверг исходное значение.
type ValidationError struct {
	Kind  string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: rejected value %v", e.Kind, e.Value)
}

// IsValidationError сообщает, является ли ошибка отказом валидатора.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// newValidated проверяет значение предикатом, если он задан,
// и возвращает ValidationError при отказе.
func newValidated[T any](kind string, value T, valid func(T) bool) (T, error) {
	if valid != nil && !valid(value) {
		var zero T
		return zero, &ValidationError{Kind: kind, Value: value}
	}
	return value, nil
}

// UserID — идентификатор пользователя платформы (snowflake).
type UserID struct {
	value string
}

// NewUserID создаёт идентификатор пользователя из строки snowflake.
func NewUserID(raw string) (UserID, error) {
	v, err := newValidated("UserID", raw, isSnowflake)
	if err != nil {
		return UserID{}, err
	}
	return UserID{value: v}, nil
}

func (id UserID) String() string { return id.value }

// Equals сравнивает идентификаторы по значению.
func (id UserID) Equals(other UserID) bool { return id.value == other.value }

// MessageID — идентификатор сообщения-источника начисления.
type MessageID struct {
	value string
}

// NewMessageID создаёт идентификатор сообщения из строки snowflake.
func NewMessageID(raw string) (MessageID, error) {
	v, err := newValidated("MessageID", raw, isSnowflake)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID{value: v}, nil
}

func (id MessageID) String() string { return id.value }

func (id MessageID) Equals(other MessageID) bool { return id.value == other.value }

// ChannelID — идентификатор канала платформы.
type ChannelID struct {
	value string
}

// NewChannelID создаёт идентификатор канала из строки snowflake.
func NewChannelID(raw string) (ChannelID, error) {
	v, err := newValidated("ChannelID", raw, isSnowflake)
	if err != nil {
		return ChannelID{}, err
	}
	return ChannelID{value: v}, nil
}

func (id ChannelID) String() string { return id.value }

func (id ChannelID) Equals(other ChannelID) bool { return id.value == other.value }

// tradableItems — замкнутые наборы предметов каталога, доступных к обмену.
// Идентификатор предмета вне набора своей валюты не проходит валидацию.
var tradableItems = map[model.Kind]map[int64]struct{}{
	model.KindPoint: {1: {}, 2: {}, 3: {}},
	model.KindCandy: {1: {}, 2: {}},
}

// ItemID — идентификатор предмета каталога, ограниченный набором обмениваемых.
type ItemID struct {
	value int64
}

// NewItemID создаёт идентификатор предмета каталога указанной валюты.
func NewItemID(kind model.Kind, raw int64) (ItemID, error) {
	v, err := newValidated("ItemID", raw, func(v int64) bool {
		_, ok := tradableItems[kind][v]
		return ok
	})
	if err != nil {
		return ItemID{}, err
	}
	return ItemID{value: v}, nil
}

func (id ItemID) Int64() int64 { return id.value }

func (id ItemID) Equals(other ItemID) bool { return id.value == other.value }

// UserItemID — идентификатор выпавшего предмета пользователя (положительный).
type UserItemID struct {
	value int64
}

// NewUserItemID создаёт идентификатор предмета пользователя.
func NewUserItemID(raw int64) (UserItemID, error) {
	v, err := newValidated("UserItemID", raw, func(v int64) bool { return v > 0 })
	if err != nil {
		return UserItemID{}, err
	}
	return UserItemID{value: v}, nil
}

func (id UserItemID) Int64() int64 { return id.value }

func (id UserItemID) Equals(other UserItemID) bool { return id.value == other.value }

// ItemStatus — статус предмета из замкнутого набора готовых экземпляров.
type ItemStatus struct {
	value model.UserItemStatus
}

var (
	ItemStatusUnused = ItemStatus{value: model.UserItemStatusUnused}
	ItemStatusUsed   = ItemStatus{value: model.UserItemStatusUsed}
)

// ParseItemStatus восстанавливает статус из хранимой строки.
func ParseItemStatus(raw string) (ItemStatus, error) {
	v, err := newValidated("ItemStatus", model.UserItemStatus(raw), func(v model.UserItemStatus) bool {
		return v == model.UserItemStatusUnused || v == model.UserItemStatusUsed
	})
	if err != nil {
		return ItemStatus{}, err
	}
	return ItemStatus{value: v}, nil
}

func (s ItemStatus) Status() model.UserItemStatus { return s.value }

func (s ItemStatus) Equals(other ItemStatus) bool { return s.value == other.value }
