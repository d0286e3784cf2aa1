// Package app собирает приложение: подключение к базе, миграции,
// репозитории, сервисы и фоновые задачи.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/config"
	"github.com/Roller231/clicker-dimond/internal/db/postgres"
	"github.com/Roller231/clicker-dimond/internal/features/economy"
	"github.com/Roller231/clicker-dimond/internal/features/payments"
	"github.com/Roller231/clicker-dimond/internal/features/player"
	"github.com/Roller231/clicker-dimond/internal/features/quests"
	"github.com/Roller231/clicker-dimond/internal/features/upgrades"
	"github.com/Roller231/clicker-dimond/internal/jobs"
)

// App — собранное приложение со всеми сервисами.
type App struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	Players  *player.Service
	Economy  *economy.Service
	Upgrades *upgrades.Service
	Quests   *quests.Service
	Payments *payments.Service

	scheduler *jobs.Scheduler
}

// New создаёт приложение: подключается к базе, накатывает миграции,
// сидит справочники и связывает сервисы.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("миграции: %w", err)
	}
	if err := seedData(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("сиды: %w", err)
	}

	loc := common.LoadLocation(cfg.AppTimezone)
	clock := common.RealClock{}

	economyRepo := economy.NewRepository(pool)
	playerRepo := player.NewRepository(pool, economyRepo)
	upgradesRepo := upgrades.NewRepository(pool, economyRepo)
	questsRepo := quests.NewRepository(pool, economyRepo)
	paymentsRepo := payments.NewRepository(pool, economyRepo)

	questsSvc := quests.NewService(questsRepo, clock, loc)
	economySvc := economy.NewService(economyRepo, questsSvc)
	upgradesSvc := upgrades.NewService(upgradesRepo, questsSvc, cfg)
	playersSvc := player.NewService(playerRepo, economySvc, upgradesSvc, questsSvc, clock, cfg)

	provider, err := payments.NewStarsProvider(cfg.TelegramBotToken, cfg.PaymentProviderTimeout)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("платёжный провайдер: %w", err)
	}
	paymentsSvc := payments.NewService(paymentsRepo, provider, clock)

	scheduler, err := jobs.NewScheduler(questsSvc, loc)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("планировщик: %w", err)
	}

	return &App{
		cfg:       cfg,
		pool:      pool,
		Players:   playersSvc,
		Economy:   economySvc,
		Upgrades:  upgradesSvc,
		Quests:    questsSvc,
		Payments:  paymentsSvc,
		scheduler: scheduler,
	}, nil
}

// Run запускает фоновые задачи приложения.
func (a *App) Run() {
	a.scheduler.Start()
	log.Info("Приложение запущено")
}

// Shutdown останавливает фоновые задачи и закрывает пул соединений.
// Ждёт завершения уже идущих задач, но не дольше таймаута.
func (a *App) Shutdown(timeout time.Duration) {
	stopped := a.scheduler.Stop()
	select {
	case <-stopped:
	case <-time.After(timeout):
		log.Warn("Фоновые задачи не успели завершиться за таймаут")
	}
	a.pool.Close()
	log.Info("Приложение остановлено")
}
