// Package common — errors.go определяет пользовательские ошибки игровой экономики.
// Все ошибки здесь — ожидаемые отказы бизнес-правил, а не поломка хранилища:
// вызывающий слой различает их через errors.Is и показывает игроку понятный текст.
// Ошибки инфраструктуры (БД недоступна и т.п.) оборачиваются через %w и
// никогда не маппятся на эти значения.
package common

import "errors"

// Ошибки экономики (баланс кристаллов, переводы)
var (
	// ErrInvalidAmount — сумма нулевая или отрицательная
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrInsufficientBalance — недостаточно кристаллов на счёте
	ErrInsufficientBalance = errors.New("недостаточно кристаллов на счёте")
	// ErrSelfTransfer — попытка перевести кристаллы самому себе
	ErrSelfTransfer = errors.New("нельзя переводить кристаллы самому себе")
	// ErrUserNotFound — игрок не найден в базе
	ErrUserNotFound = errors.New("игрок не найден")
)

// Ошибки энергии
var (
	// ErrInsufficientEnergy — не хватает энергии на действие
	ErrInsufficientEnergy = errors.New("недостаточно энергии")
)

// Ошибки улучшений
var (
	// ErrUnknownUpgrade — улучшение с таким ключом не существует
	ErrUnknownUpgrade = errors.New("улучшение не найдено")
	// ErrMaxLevelReached — достигнут максимальный уровень улучшения
	ErrMaxLevelReached = errors.New("достигнут максимальный уровень")
)

// Ошибки заданий
var (
	// ErrUnknownQuest — задание не существует или выключено
	ErrUnknownQuest = errors.New("задание не найдено")
	// ErrQuestNotCompleted — задание ещё не выполнено, награду забирать рано
	ErrQuestNotCompleted = errors.New("задание ещё не выполнено")
	// ErrQuestAlreadyClaimed — награда за это задание уже получена в текущем периоде
	ErrQuestAlreadyClaimed = errors.New("награда уже получена")
)

// Ошибки платежей
var (
	// ErrUnknownShopItem — товар не существует или снят с продажи
	ErrUnknownShopItem = errors.New("товар не найден")
	// ErrNoPendingPayment — нет ожидающего платежа, который можно подтвердить
	ErrNoPendingPayment = errors.New("нет ожидающего платежа")
	// ErrPaymentPending — у игрока уже есть незавершённый платёж
	ErrPaymentPending = errors.New("предыдущий платёж ещё не завершён")
)
