// Package service реализует бизнес-логику бота: розыгрыши, обмены и начисления
// валюты, а также отложенные напоминания.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/keymutex"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/repository"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

// LedgerRepository описывает контракт доступа к данным, используемый логикой валюты.
type LedgerRepository interface {
	CreateLedgerEntry(ctx context.Context, kind model.Kind, giveUserID, receiveUserID, messageID string, expiredAt time.Time) (int64, error)
	HasLedgerEntry(ctx context.Context, kind model.Kind, giveUserID, messageID string) (bool, error)
	GetBalance(ctx context.Context, kind model.Kind, userID string, now time.Time) (*model.Balance, error)
	CreateDraw(ctx context.Context, kind model.Kind, userID string, cost int64, itemID *int64, expiredAt, now time.Time) error
	ExchangeUserItem(ctx context.Context, kind model.Kind, userID string, userItemID int64, now time.Time) (*model.CatalogItem, error)
	ListUnusedItems(ctx context.Context, kind model.Kind, userID string, now time.Time) ([]model.ItemGroup, error)
	GetCatalogItem(ctx context.Context, kind model.Kind, itemID int64) (*model.CatalogItem, error)
}

// DrawCounter учитывает исходы розыгрышей для метрик.
type DrawCounter interface {
	IncDraw(kind model.Kind, outcome string)
}

type nopDrawCounter struct{}

func (nopDrawCounter) IncDraw(model.Kind, string) {}

// LedgerConfig задаёт параметры одной валютной подсистемы.
// Пороги розыгрыша приходят из конфигурации и нигде не перевычисляются:
// их изменение меняет экономику сообщества.
type LedgerConfig struct {
	Kind    model.Kind
	Title   string
	Command string

	DrawCost         int64
	Ceiling          int64
	JackpotThreshold int64
	HitThreshold     int64
	JackpotItemID    int64
	HitItemID        int64

	GrantTTL time.Duration
	ItemTTL  time.Duration
}

// LedgerService реализует операции одной валюты: баланс, розыгрыш, обмен,
// список предметов и начисление. Одна и та же логика обслуживает и очки,
// и конфеты — различаются только параметры LedgerConfig.
type LedgerService struct {
	cfg     LedgerConfig
	repo    LedgerRepository
	locks   *keymutex.Registry
	draws   DrawCounter
	now     func() time.Time
	randInt func(n int64) int64
}

// NewLedgerService создаёт сервис валюты. Призовые предметы конфигурации
// проверяются по набору обмениваемых предметов валюты: розыгрыш не должен
// создавать предмет, который потом нельзя обменять. Счётчик розыгрышей
// может быть nil.
func NewLedgerService(cfg LedgerConfig, repo LedgerRepository, locks *keymutex.Registry, draws DrawCounter) (*LedgerService, error) {
	if _, err := vo.NewItemID(cfg.Kind, cfg.JackpotItemID); err != nil {
		return nil, fmt.Errorf("jackpot item: %w", err)
	}
	if _, err := vo.NewItemID(cfg.Kind, cfg.HitItemID); err != nil {
		return nil, fmt.Errorf("hit item: %w", err)
	}

	if draws == nil {
		draws = nopDrawCounter{}
	}
	return &LedgerService{
		cfg:     cfg,
		repo:    repo,
		locks:   locks,
		draws:   draws,
		now:     time.Now,
		randInt: rand.Int64N,
	}, nil
}

func (s *LedgerService) lockKey(userID vo.UserID) string {
	return string(s.cfg.Kind) + ":" + userID.String()
}

// Check возвращает сводку баланса пользователя.
func (s *LedgerService) Check(ctx context.Context, userID vo.UserID) (string, error) {
	b, err := s.repo.GetBalance(ctx, s.cfg.Kind, userID.String(), s.now())
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s — баланс: %d (получено %d, потрачено %d).",
		s.cfg.Title, b.Current, b.Granted, b.Consumed), nil
}

type drawOutcome int

const (
	drawMiss drawOutcome = iota
	drawHit
	drawJackpot
)

// roll разыгрывает один случайный исход. Интервалы полуоткрытые,
// одна выборка на вызов, без повторов при промахе.
func (s *LedgerService) roll() drawOutcome {
	n := s.randInt(s.cfg.Ceiling)
	switch {
	case n < s.cfg.JackpotThreshold:
		return drawJackpot
	case n < s.cfg.JackpotThreshold+s.cfg.HitThreshold:
		return drawHit
	default:
		return drawMiss
	}
}

// DrawItem проводит розыгрыш: под мьютексом пользователя списывает стоимость
// и при выигрыше создаёт предмет. Стоимость списывается ровно один раз
// независимо от исхода; при нехватке баланса состояние не меняется.
func (s *LedgerService) DrawItem(ctx context.Context, userID vo.UserID) (string, error) {
	outcome := s.roll()

	var itemID *int64
	switch outcome {
	case drawJackpot:
		itemID = &s.cfg.JackpotItemID
	case drawHit:
		itemID = &s.cfg.HitItemID
	}

	var result string
	err := s.locks.Do(ctx, s.lockKey(userID), func(ctx context.Context) error {
		now := s.now()
		err := s.repo.CreateDraw(ctx, s.cfg.Kind, userID.String(), s.cfg.DrawCost, itemID, now.Add(s.cfg.ItemTTL), now)
		if errors.Is(err, repository.ErrInsufficientBalance) {
			s.draws.IncDraw(s.cfg.Kind, "insufficient")
			result = fmt.Sprintf("Недостаточно баланса для розыгрыша: нужно %d.", s.cfg.DrawCost)
			return nil
		}
		if err != nil {
			return err
		}

		if itemID == nil {
			s.draws.IncDraw(s.cfg.Kind, "miss")
			result = "Увы, в этот раз ничего не выпало."
			return nil
		}

		catalog, err := s.repo.GetCatalogItem(ctx, s.cfg.Kind, *itemID)
		if err != nil {
			return err
		}

		expires := now.Add(s.cfg.ItemTTL).Format("02.01.2006")
		if outcome == drawJackpot {
			s.draws.IncDraw(s.cfg.Kind, "jackpot")
			result = fmt.Sprintf("Джекпот! Вам выпал предмет «%s». Обменяйте его командой /%s-exchange до %s.",
				catalog.Name, s.cfg.Command, expires)
		} else {
			s.draws.IncDraw(s.cfg.Kind, "hit")
			result = fmt.Sprintf("Вам выпал предмет «%s». Срок обмена — до %s.", catalog.Name, expires)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

// Exchange обменивает предмет пользователя на приз каталога.
// Чужой, использованный или просроченный предмет даёт отдельные сообщения.
func (s *LedgerService) Exchange(ctx context.Context, userID vo.UserID, userItemID vo.UserItemID) (string, error) {
	var result string
	err := s.locks.Do(ctx, s.lockKey(userID), func(ctx context.Context) error {
		catalog, err := s.repo.ExchangeUserItem(ctx, s.cfg.Kind, userID.String(), userItemID.Int64(), s.now())
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			result = "Предмет не найден среди ваших предметов."
			return nil
		case errors.Is(err, repository.ErrItemAlreadyUsed):
			result = "Этот предмет уже был использован."
			return nil
		case errors.Is(err, repository.ErrItemExpired):
			result = "Срок действия предмета истёк."
			return nil
		case err != nil:
			return err
		}

		result = fmt.Sprintf("Предмет «%s» обменян: %s", catalog.Name, catalog.Description)
		return nil
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

// GetItems возвращает список неиспользованных предметов пользователя,
// сгруппированный по предмету каталога, с подсказкой обменивать старые первыми.
func (s *LedgerService) GetItems(ctx context.Context, userID vo.UserID) (string, error) {
	groups, err := s.repo.ListUnusedItems(ctx, s.cfg.Kind, userID.String(), s.now())
	if err != nil {
		return "", err
	}

	if len(groups) == 0 {
		return "У вас пока нет предметов.", nil
	}

	var sb strings.Builder
	sb.WriteString("Ваши предметы (обменивайте старые первыми):")
	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("\n• «%s» ×%d — старейший id %d, истекает %s\n  %s",
			g.Name, g.Count, g.OldestUserItem, g.EarliestExpiry.Format("02.01.2006"), g.Description))
	}

	return sb.String(), nil
}

// GivePoint начисляет одну единицу валюты получателю за сообщение.
// Повторное событие по той же паре (дающий, сообщение) — штатный no-op:
// возвращается пустая строка и вставка не выполняется. Начисление самому себе
// тоже тихо игнорируется.
func (s *LedgerService) GivePoint(ctx context.Context, receiver, giver vo.UserID, messageID vo.MessageID) (string, error) {
	if receiver.Equals(giver) {
		return "", nil
	}

	exists, err := s.repo.HasLedgerEntry(ctx, s.cfg.Kind, giver.String(), messageID.String())
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}

	_, err = s.repo.CreateLedgerEntry(ctx, s.cfg.Kind, giver.String(), receiver.String(), messageID.String(), s.now().Add(s.cfg.GrantTTL))
	if err != nil {
		// Гонка двух одинаковых событий: уникальный индекс делает вторую
		// вставку тем же самым no-op.
		if errors.Is(err, repository.ErrDuplicateGrant) {
			return "", nil
		}
		return "", err
	}

	return fmt.Sprintf("<@%s> получает +1 (%s) от <@%s>!", receiver.String(), s.cfg.Title, giver.String()), nil
}
