// Package jobs содержит фоновые задачи по расписанию.
// Сейчас это чистка устаревшего прогресса заданий на границах периодов.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/features/quests"
)

// questResetter сбрасывает прогресс заданий истёкших периодов.
type questResetter interface {
	ResetPeriod(ctx context.Context, period string) (int64, error)
}

// Scheduler запускает периодические задачи в часовом поясе приложения.
// Границы расписания совпадают с границами периодов заданий.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler создаёт планировщик:
//   - каждый день в полночь — чистка дневного прогресса
//   - каждый понедельник в полночь — чистка недельного прогресса
//
// Чистка — уборка, а не источник истины: новый период и без неё
// начинается с новой строки прогресса.
func NewScheduler(resetter questResetter, loc *time.Location) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc("0 0 * * *", func() {
		runReset(resetter, quests.PeriodDaily)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc("0 0 * * 1", func() {
		runReset(resetter, quests.PeriodWeekly)
	}); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

func runReset(resetter questResetter, period string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := resetter.ResetPeriod(ctx, period)
	if err != nil {
		log.WithError(err).WithField("period", period).
			Error("Не удалось сбросить прогресс заданий")
		return
	}
	log.WithFields(log.Fields{
		"period":  period,
		"deleted": deleted,
	}).Info("Прогресс заданий прошлых периодов удалён")
}

// Start запускает планировщик.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик. Возвращённый канал закрывается,
// когда завершатся уже идущие задачи.
func (s *Scheduler) Stop() <-chan struct{} {
	ctx := s.cron.Stop()
	return ctx.Done()
}
