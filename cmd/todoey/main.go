package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"todoey/internal/bot"
	"todoey/internal/config"
	"todoey/internal/repository"
	"todoey/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgErr := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	// Make zap available to packages that log through zap.L().
	zap.ReplaceGlobals(logger)
	defer func() {
		if err := logger.Sync(); err != nil {
			zap.L().Debug("failed to sync logger", zap.Error(err))
		}
	}()

	if cfgErr != nil {
		logger.Fatal("config", zap.Error(cfgErr))
	}

	store, err := repository.Open(ctx, repository.Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		PlistPath:   cfg.PlistPath,
		RedisURL:    cfg.RedisURL,
		CacheTTL:    cfg.CacheTTL,
	}, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	categorySvc := service.NewCategoryService(store.Categories, logger)
	itemSvc := service.NewItemService(store.Items, logger)
	summarySvc := service.NewSummaryService(store.Categories, store.Items)

	translator, err := bot.NewTranslator(cfg.Language)
	if err != nil {
		logger.Fatal("load translations", zap.Error(err))
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("create bot api", zap.Error(err))
	}
	logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	if cfg.OwnerID == 0 {
		logger.Warn("TELEGRAM_OWNER_ID is not set, every private chat shares one list")
	}

	telegramBot := bot.New(api, bot.Deps{
		Categories: categorySvc,
		Items:      itemSvc,
		Summary:    summarySvc,
		Translator: translator,
		OwnerID:    cfg.OwnerID,
		Log:        logger,
	})

	scheduler := service.NewSchedulerService(time.Local, logger)
	if cfg.BackupPath != "" {
		backupSvc := service.NewBackupService(store, cfg.BackupPath, logger)
		if _, err := scheduler.Every("backup", cfg.BackupInterval, backupSvc.Run); err != nil {
			logger.Fatal("schedule backup", zap.Error(err))
		}
	}
	if cfg.SummaryTime != "" && cfg.OwnerID != 0 {
		if _, err := scheduler.Daily("summary", cfg.SummaryTime, telegramBot.SendSummary); err != nil {
			logger.Fatal("schedule summary", zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("todoey bot started", zap.String("backend", cfg.StoreBackend))
	if err := telegramBot.Start(ctx, api); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
