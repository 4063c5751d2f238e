// Package model содержит доменные сущности бота сообщества.
package model

import "time"

// Kind определяет валютную подсистему, к которой относится запись.
type Kind string

const (
	KindPoint Kind = "POINT"
	KindCandy Kind = "CANDY"
)

// LedgerStatus описывает состояние записи о начислении валюты.
type LedgerStatus string

const (
	LedgerStatusValid    LedgerStatus = "VALID"
	LedgerStatusConsumed LedgerStatus = "CONSUMED"
	LedgerStatusInvalid  LedgerStatus = "INVALID"
)

// UserItemStatus описывает состояние выпавшего предмета пользователя.
type UserItemStatus string

const (
	UserItemStatusUnused UserItemStatus = "UNUSED"
	UserItemStatusUsed   UserItemStatus = "USED"
)

// ReminderStatus описывает состояние напоминания.
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "PENDING"
	ReminderStatusSent    ReminderStatus = "SENT"
)

// LedgerEntry представляет одно начисление валюты, привязанное к сообщению-источнику.
type LedgerEntry struct {
	ID            int64
	Kind          Kind
	GiveUserID    string
	ReceiveUserID string
	MessageID     string
	Status        LedgerStatus
	ExpiredAt     time.Time
	CreatedAt     time.Time
}

// UserItem представляет предмет, выпавший пользователю в розыгрыше.
type UserItem struct {
	ID        int64
	Kind      Kind
	UserID    string
	ItemID    int64
	Status    UserItemStatus
	ExpiredAt time.Time
	CreatedAt time.Time
}

// CatalogItem описывает предмет каталога — статические справочные данные.
type CatalogItem struct {
	ID          int64
	Kind        Kind
	Name        string
	Description string
}

// ItemGroup — проекция списка предметов пользователя, сгруппированная по предмету каталога.
type ItemGroup struct {
	ItemID         int64
	Name           string
	Description    string
	Count          int64
	OldestUserItem int64
	EarliestExpiry time.Time
}

// Reminder описывает отложенное напоминание пользователю.
type Reminder struct {
	ID        int64
	UserID    string
	ChannelID string
	Message   string
	RemindAt  time.Time
	Status    ReminderStatus
	CreatedAt time.Time
}

// Balance содержит сводку по валюте пользователя в единицах начислений.
type Balance struct {
	Current  int64
	Granted  int64
	Consumed int64
}
