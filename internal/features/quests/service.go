// Package quests — service.go содержит бизнес-логику заданий:
// учёт прогресса по действиям игрока, выдача наград, сброс периодов.
package quests

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
)

// progressStore — операции хранилища, нужные сервису.
// Реализуется *Repository; в тестах подменяется на фейк.
type progressStore interface {
	ActiveQuests(ctx context.Context) ([]*Quest, error)
	ActiveByAction(ctx context.Context, actionType string) ([]*Quest, error)
	GetByID(ctx context.Context, questID int64) (*Quest, error)
	GetOrCreateProgress(ctx context.Context, userID, questID int64, periodStart time.Time) (*Progress, error)
	AddProgress(ctx context.Context, userID, questID int64, periodStart time.Time, amount, target int64) (*Progress, error)
	ClaimReward(ctx context.Context, userID, questID int64, periodStart time.Time, reward int64) error
	DeleteBefore(ctx context.Context, period string, before time.Time) (int64, error)
}

// Service управляет заданиями.
type Service struct {
	store progressStore
	clock common.Clock
	loc   *time.Location
}

// NewService создаёт сервис заданий.
// loc задаёт часовой пояс границ периодов (полночь дня, понедельник недели).
func NewService(store progressStore, clock common.Clock, loc *time.Location) *Service {
	return &Service{store: store, clock: clock, loc: loc}
}

// RecordProgress наращивает прогресс всех активных заданий, считающих
// действие actionType. Строки прогресса создаются лениво для текущего
// периода; задания с уже полученной наградой пропускаются — их прогресс
// заморожен до конца периода.
func (s *Service) RecordProgress(ctx context.Context, userID int64, actionType string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	quests, err := s.store.ActiveByAction(ctx, actionType)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, q := range quests {
		periodStart := PeriodStart(q.Period, now, s.loc)

		row, err := s.store.GetOrCreateProgress(ctx, userID, q.ID, periodStart)
		if err != nil {
			return err
		}
		if row.IsClaimed {
			continue
		}

		updated, err := s.store.AddProgress(ctx, userID, q.ID, periodStart, amount, q.TargetValue)
		if err != nil {
			return err
		}
		if updated != nil && updated.IsCompleted && !row.IsCompleted {
			log.WithFields(log.Fields{
				"user_id":  userID,
				"quest_id": q.ID,
				"progress": updated.Progress,
			}).Debug("Задание выполнено")
		}
	}

	return nil
}

// RecordTransfer — учёт переводов для заданий.
// Отдельный метод, чтобы леджер не знал про типы действий заданий.
func (s *Service) RecordTransfer(ctx context.Context, userID, amount int64) error {
	return s.RecordProgress(ctx, userID, ActionTransfer, amount)
}

// Claim выдаёт награду за выполненное задание текущего периода.
// Возвращает размер награды. Ошибки:
//   - ErrUnknownQuest — задание не существует или выключено
//   - ErrQuestNotCompleted — цель ещё не достигнута
//   - ErrQuestAlreadyClaimed — награда уже получена в этом периоде
//
// Начисление награды и отметка is_claimed атомарны: либо игрок получил
// кристаллы ровно один раз, либо не получил вовсе.
func (s *Service) Claim(ctx context.Context, userID, questID int64) (int64, error) {
	q, err := s.store.GetByID(ctx, questID)
	if err != nil {
		return 0, err
	}
	if !q.IsActive {
		return 0, common.ErrUnknownQuest
	}

	periodStart := PeriodStart(q.Period, s.clock.Now(), s.loc)

	row, err := s.store.GetOrCreateProgress(ctx, userID, q.ID, periodStart)
	if err != nil {
		return 0, err
	}
	if !row.IsCompleted {
		return 0, common.ErrQuestNotCompleted
	}
	if row.IsClaimed {
		return 0, common.ErrQuestAlreadyClaimed
	}

	// Повторная проверка внутри транзакции хранилища: гонку двух claim
	// выигрывает ровно один.
	if err := s.store.ClaimReward(ctx, userID, q.ID, periodStart, q.Reward); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"quest_id": questID,
		"reward":   q.Reward,
	}).Info("Награда за задание выдана")

	return q.Reward, nil
}

// ListForPlayer возвращает задания с прогрессом игрока за текущий период.
// periodFilter: "" — все, иначе daily или weekly.
func (s *Service) ListForPlayer(ctx context.Context, userID int64, periodFilter string) ([]*PlayerQuest, error) {
	quests, err := s.store.ActiveQuests(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := make([]*PlayerQuest, 0, len(quests))
	for _, q := range quests {
		if periodFilter != "" && q.Period != periodFilter {
			continue
		}
		row, err := s.store.GetOrCreateProgress(ctx, userID, q.ID, PeriodStart(q.Period, now, s.loc))
		if err != nil {
			return nil, err
		}
		result = append(result, &PlayerQuest{
			Quest:       q,
			Progress:    row.Progress,
			IsCompleted: row.IsCompleted,
			IsClaimed:   row.IsClaimed,
		})
	}
	return result, nil
}

// ResetPeriod удаляет прогресс прошлых периодов для заданий вида period.
// Это чистка, а не условие корректности: прогресс текущего периода
// создаётся лениво, так что вызов можно пропустить или повторить в любой
// момент без последствий. Возвращает число удалённых строк.
func (s *Service) ResetPeriod(ctx context.Context, period string) (int64, error) {
	before := PeriodStart(period, s.clock.Now(), s.loc)
	deleted, err := s.store.DeleteBefore(ctx, period, before)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"period":  period,
		"deleted": deleted,
	}).Info("Сброс прогресса заданий")
	return deleted, nil
}
