package player

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/config"
	"github.com/Roller231/clicker-dimond/internal/features/economy"
	"github.com/Roller231/clicker-dimond/internal/features/quests"
)

// playerStore — операции хранилища игроков, нужные сервису.
type playerStore interface {
	Create(ctx context.Context, cmd CreatePlayerCommand, startEnergy int) (*Player, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Player, error)
	GetByUsername(ctx context.Context, username string) (*Player, error)
	Leaderboard(ctx context.Context, limit int) ([]*Player, error)
	UpdateProfile(ctx context.Context, userID int64, cmd UpdateProfileCommand) (*Player, error)
	RegenerateEnergy(ctx context.Context, userID int64, now time.Time, perSecond int) (*Player, error)
	Click(ctx context.Context, userID int64, clicks int, earned int64, now time.Time, perSecond int) (*Player, error)
}

// crediter начисляет кристаллы в леджер.
type crediter interface {
	Credit(ctx context.Context, userID, amount int64, txType, description string) error
}

// clickPowerSource возвращает текущую силу клика игрока с учётом улучшений.
type clickPowerSource interface {
	ClickPower(ctx context.Context, userID int64) (int64, error)
}

// questRecorder засчитывает действия игрока в прогресс заданий.
type questRecorder interface {
	RecordProgress(ctx context.Context, userID int64, actionType string, amount int64) error
}

// Service — сервис игроков: регистрация, профиль, клики и энергия.
type Service struct {
	store    playerStore
	ledger   crediter
	upgrades clickPowerSource
	quests   questRecorder
	clock    common.Clock
	cfg      *config.Config
}

// NewService создаёт сервис игроков.
func NewService(store playerStore, ledger crediter, upgrades clickPowerSource, questsSvc questRecorder, clock common.Clock, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		upgrades: upgrades,
		quests:   questsSvc,
		clock:    clock,
		cfg:      cfg,
	}
}

// Register регистрирует игрока. Повторный вызов для того же Telegram ID
// возвращает существующего игрока без изменений.
func (s *Service) Register(ctx context.Context, cmd CreatePlayerCommand) (*Player, error) {
	p, err := s.store.Create(ctx, cmd, s.cfg.EnergyDefaultMax)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     p.ID,
		"telegram_id": p.TelegramID,
	}).Info("Игрок зарегистрирован")

	return p, nil
}

// GetByID возвращает игрока со свежепересчитанной энергией.
func (s *Service) GetByID(ctx context.Context, userID int64) (*Player, error) {
	return s.store.RegenerateEnergy(ctx, userID, s.clock.Now(), s.cfg.EnergyRegenPerSecond)
}

// GetByTelegramID возвращает игрока по Telegram ID со свежей энергией.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*Player, error) {
	p, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.store.RegenerateEnergy(ctx, p.ID, s.clock.Now(), s.cfg.EnergyRegenPerSecond)
}

// GetByUsername возвращает игрока по нику (для переводов).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Player, error) {
	return s.store.GetByUsername(ctx, username)
}

// Leaderboard возвращает топ игроков по балансу.
func (s *Service) Leaderboard(ctx context.Context) ([]*Player, error) {
	return s.store.Leaderboard(ctx, s.cfg.LeaderboardLimit)
}

// UpdateProfile обновляет профиль игрока типизированной командой.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, cmd UpdateProfileCommand) (*Player, error) {
	return s.store.UpdateProfile(ctx, userID, cmd)
}

// ClickResult — итог пачки кликов.
type ClickResult struct {
	Player *Player
	Earned int64
}

// Click обрабатывает пачку кликов: списывает по единице энергии за клик и
// начисляет кристаллы по текущей силе клика — одной транзакцией хранилища.
// Не хватает энергии на всю пачку — common.ErrInsufficientEnergy,
// ничего не меняется.
func (s *Service) Click(ctx context.Context, userID int64, clicks int) (*ClickResult, error) {
	if clicks <= 0 {
		return nil, common.ErrInvalidAmount
	}

	power, err := s.upgrades.ClickPower(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned := int64(clicks) * power
	p, err := s.store.Click(ctx, userID, clicks, earned, s.clock.Now(), s.cfg.EnergyRegenPerSecond)
	if err != nil {
		return nil, err
	}

	// Энергия уже списана, кристаллы начислены: ошибка учёта прогресса
	// логируется, но не отменяет клик.
	if err := s.quests.RecordProgress(ctx, userID, quests.ActionClick, int64(clicks)); err != nil {
		log.WithError(err).WithField("user_id", userID).
			Error("Не удалось засчитать клики в прогресс заданий")
	}
	if err := s.quests.RecordProgress(ctx, userID, quests.ActionEarn, earned); err != nil {
		log.WithError(err).WithField("user_id", userID).
			Error("Не удалось засчитать заработок в прогресс заданий")
	}

	return &ClickResult{Player: p, Earned: earned}, nil
}

// PassiveIncome начисляет пассивный доход (офлайн-фарм и бонусы).
func (s *Service) PassiveIncome(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	if err := s.ledger.Credit(ctx, userID, amount, economy.TxTypePassive, "Пассивный доход"); err != nil {
		return err
	}

	if err := s.quests.RecordProgress(ctx, userID, quests.ActionEarn, amount); err != nil {
		log.WithError(err).WithField("user_id", userID).
			Error("Не удалось засчитать доход в прогресс заданий")
	}
	return nil
}
