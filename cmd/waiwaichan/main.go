// Package main запускает бота сообщества waiwaichan.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/config"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/gateway"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/handler"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/keymutex"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/ops"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/repository"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/service"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/translate"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	promRegistry := prometheus.NewRegistry()
	metrics := ops.NewMetrics(promRegistry)

	locks := keymutex.NewRegistry()

	grantTTL := time.Duration(cfg.GrantTTLDays) * 24 * time.Hour
	itemTTL := time.Duration(cfg.ItemTTLDays) * 24 * time.Hour

	pointSvc, err := service.NewLedgerService(service.LedgerConfig{
		Kind:             model.KindPoint,
		Title:            "Очки",
		Command:          "point",
		DrawCost:         cfg.DrawCost,
		Ceiling:          cfg.DrawCeiling,
		JackpotThreshold: cfg.PointJackpotThreshold,
		HitThreshold:     cfg.PointHitThreshold,
		JackpotItemID:    1,
		HitItemID:        2,
		GrantTTL:         grantTTL,
		ItemTTL:          itemTTL,
	}, repo, locks, metrics)
	if err != nil {
		sugar.Fatalw("point service configuration error", "error", err.Error())
	}

	candySvc, err := service.NewLedgerService(service.LedgerConfig{
		Kind:             model.KindCandy,
		Title:            "Конфеты",
		Command:          "candy",
		DrawCost:         cfg.DrawCost,
		Ceiling:          cfg.DrawCeiling,
		JackpotThreshold: cfg.CandyJackpotThreshold,
		HitThreshold:     cfg.CandyHitThreshold,
		JackpotItemID:    1,
		HitItemID:        2,
		GrantTTL:         grantTTL,
		ItemTTL:          itemTTL,
	}, repo, locks, metrics)
	if err != nil {
		sugar.Fatalw("candy service configuration error", "error", err.Error())
	}

	router := handler.NewRouter()
	if err := router.Register(handler.NewLedgerHandler("point", pointSvc, logger, metrics)); err != nil {
		sugar.Fatalw("router registration error", "error", err.Error())
	}
	if err := router.Register(handler.NewLedgerHandler("candy", candySvc, logger, metrics)); err != nil {
		sugar.Fatalw("router registration error", "error", err.Error())
	}
	if cfg.TranslateAddress != "" {
		translator := translate.NewClient(cfg.TranslateAddress)
		if err := router.Register(handler.NewTranslateHandler(translator, logger, metrics)); err != nil {
			sugar.Fatalw("router registration error", "error", err.Error())
		}
	}

	grants := handler.NewGrants(map[model.Kind]handler.LedgerService{
		model.KindPoint: pointSvc,
		model.KindCandy: candySvc,
	}, logger)

	gw, err := gateway.New(gateway.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.GuildID,
		EmojiKinds: map[string]model.Kind{
			cfg.PointEmoji: model.KindPoint,
			cfg.CandyEmoji: model.KindCandy,
		},
	}, router, grants, logger)
	if err != nil {
		sugar.Fatalw("gateway initialization error", "error", err.Error())
	}

	reminderSvc := service.NewReminderService(repo, gw, logger)
	if err := router.Register(handler.NewRemindHandler(reminderSvc, logger, metrics)); err != nil {
		sugar.Fatalw("router registration error", "error", err.Error())
	}

	opsServer := ops.NewServer(cfg.OpsAddress, logger, repo, promRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Подключение к Discord и рассылка напоминаний
	g.Go(func() error {
		if err := gw.Open(ctx); err != nil {
			return fmt.Errorf("gateway error: %w", err)
		}
		sugar.Info("gateway connected")

		reminderSvc.StartSweeper(ctx)
		return nil
	})

	// Запуск служебного HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting ops server", "addr", cfg.OpsAddress)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ops server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown error: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gateway shutdown error: %w", err)
		}
		sugar.Info("stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
