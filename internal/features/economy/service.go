// Package economy — service.go содержит бизнес-правила движения кристаллов.
// Все проверки сумм и участников выполняются здесь, до обращения к хранилищу.
package economy

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
)

// ledgerStore — операции хранилища, нужные сервису.
// Реализуется *Repository; в тестах подменяется на in-memory фейк.
type ledgerStore interface {
	Credit(ctx context.Context, userID, amount int64, txType, description string) error
	Debit(ctx context.Context, userID, amount int64, txType, description string) error
	Transfer(ctx context.Context, fromUserID, toUserID, amount int64) error
	GetBalance(ctx context.Context, userID int64) (int64, error)
	GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
	GetTransfers(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// transferRecorder засчитывает перевод в прогресс заданий.
// Интерфейс объявлен здесь, а не в пакете заданий, чтобы не замыкать
// цикл импортов: задания начисляют награды через этот пакет.
type transferRecorder interface {
	RecordTransfer(ctx context.Context, userID, amount int64) error
}

// Service управляет экономикой игры (кристаллы).
type Service struct {
	store  ledgerStore
	quests transferRecorder
}

// NewService создаёт сервис леджера.
func NewService(store ledgerStore, quests transferRecorder) *Service {
	return &Service{store: store, quests: quests}
}

// GetBalance возвращает текущий баланс игрока.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.store.GetBalance(ctx, userID)
}

// Credit начисляет кристаллы игроку.
// Используется кликами, наградами заданий и покупками за Stars.
func (s *Service) Credit(ctx context.Context, userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.store.Credit(ctx, userID, amount, txType, description)
}

// Debit списывает кристаллы игрока.
func (s *Service) Debit(ctx context.Context, userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.store.Debit(ctx, userID, amount, txType, description)
}

// Transfer переводит кристаллы от одного игрока к другому.
// Проверки:
//   - нельзя переводить себе
//   - сумма должна быть положительной
//   - у отправителя должно хватать кристаллов (проверяется атомарно в хранилище)
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID, amount int64) error {
	if fromUserID == toUserID {
		return common.ErrSelfTransfer
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	if err := s.store.Transfer(ctx, fromUserID, toUserID, amount); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"from":   fromUserID,
		"to":     toUserID,
		"amount": amount,
	}).Info("Перевод выполнен")

	// Перевод уже зафиксирован: ошибка учёта прогресса не должна
	// заставить клиента повторить перевод.
	if s.quests != nil {
		if err := s.quests.RecordTransfer(ctx, fromUserID, amount); err != nil {
			log.WithError(err).WithField("user_id", fromUserID).
				Error("Не удалось засчитать перевод в прогресс заданий")
		}
	}

	return nil
}

// GetTransactions возвращает последние операции игрока.
func (s *Service) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	return s.store.GetTransactions(ctx, userID, limit)
}

// GetTransfers возвращает историю переводов игрока.
func (s *Service) GetTransfers(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	return s.store.GetTransfers(ctx, userID, limit)
}
