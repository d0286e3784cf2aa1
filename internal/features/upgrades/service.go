// Package upgrades — service.go содержит бизнес-логику покупки улучшений.
package upgrades

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/config"
	"github.com/Roller231/clicker-dimond/internal/features/quests"
)

// upgradeStore — операции хранилища, нужные сервису.
type upgradeStore interface {
	All(ctx context.Context) ([]*Upgrade, error)
	ByKey(ctx context.Context, key string) (*Upgrade, error)
	Level(ctx context.Context, userID, upgradeID int64) (int, error)
	PlayerLevels(ctx context.Context, userID int64) (map[int64]int, error)
	Purchase(ctx context.Context, userID int64, up *Upgrade, maxEnergyBase, maxEnergyPerLevel int) (int, error)
}

// questRecorder — учёт покупок в прогрессе заданий.
type questRecorder interface {
	RecordProgress(ctx context.Context, userID int64, actionType string, amount int64) error
}

// Service управляет улучшениями.
type Service struct {
	store  upgradeStore
	quests questRecorder
	cfg    *config.Config
}

// NewService создаёт сервис улучшений.
func NewService(store upgradeStore, questsSvc questRecorder, cfg *config.Config) *Service {
	return &Service{store: store, quests: questsSvc, cfg: cfg}
}

// Purchase покупает следующий уровень улучшения по ключу.
// Возвращает новый уровень. Ошибки:
//   - ErrUnknownUpgrade — нет улучшения с таким ключом
//   - ErrMaxLevelReached — уровень уже максимальный
//   - ErrInsufficientBalance — не хватает кристаллов (уровень не меняется)
func (s *Service) Purchase(ctx context.Context, userID int64, key string) (int, error) {
	up, err := s.store.ByKey(ctx, key)
	if err != nil {
		return 0, err
	}

	// Быстрая проверка до транзакции; авторитетная — внутри Purchase
	// под блокировкой игрока.
	level, err := s.store.Level(ctx, userID, up.ID)
	if err != nil {
		return 0, err
	}
	if level >= up.MaxLevel {
		return 0, common.ErrMaxLevelReached
	}

	newLevel, err := s.store.Purchase(ctx, userID, up, s.cfg.MaxEnergyBase, s.cfg.MaxEnergyPerLevel)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"upgrade": key,
		"level":   newLevel,
	}).Info("Улучшение куплено")

	// Прогресс заданий — побочный эффект: покупка уже зафиксирована,
	// ошибку учёта логируем, но не превращаем в отказ покупки.
	if err := s.quests.RecordProgress(ctx, userID, quests.ActionBuyUpgrade, 1); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка учёта прогресса заданий")
	}

	return newLevel, nil
}

// NextPrice возвращает цену следующего уровня улучшения для игрока.
func (s *Service) NextPrice(ctx context.Context, userID int64, key string) (int64, error) {
	up, err := s.store.ByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	level, err := s.store.Level(ctx, userID, up.ID)
	if err != nil {
		return 0, err
	}
	return Price(up.BasePrice, up.PriceMultiplier, level), nil
}

// ListForPlayer возвращает все улучшения с уровнями игрока и ценой
// следующего уровня.
func (s *Service) ListForPlayer(ctx context.Context, userID int64) ([]*PlayerUpgradeInfo, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.store.PlayerLevels(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*PlayerUpgradeInfo, 0, len(all))
	for _, up := range all {
		level := levels[up.ID]
		priceLevel := level
		if priceLevel >= up.MaxLevel {
			priceLevel = up.MaxLevel - 1
		}
		result = append(result, &PlayerUpgradeInfo{
			Key:       up.Key,
			Title:     up.Title,
			Level:     level,
			MaxLevel:  up.MaxLevel,
			NextPrice: Price(up.BasePrice, up.PriceMultiplier, priceLevel),
		})
	}
	return result, nil
}

// ClickPower возвращает стоимость одного клика игрока в кристаллах:
// база из конфигурации плюс уровень улучшения клика × прирост за уровень.
func (s *Service) ClickPower(ctx context.Context, userID int64) (int64, error) {
	up, err := s.store.ByKey(ctx, KeyClick)
	if err != nil {
		if err == common.ErrUnknownUpgrade {
			// Улучшение клика не заведено — работает голая база.
			return s.cfg.ClickBaseValue, nil
		}
		return 0, err
	}
	level, err := s.store.Level(ctx, userID, up.ID)
	if err != nil {
		return 0, err
	}
	return s.cfg.ClickBaseValue + int64(level)*up.ValuePerLevel, nil
}
