// Package economy — леджер: единственная точка, через которую двигается
// баланс кристаллов. models.go описывает записи движения средств.
package economy

import "time"

// Transaction — одна операция с кристаллами.
// Записи неизменяемы: создали — больше не трогаем. Для перевода между
// игроками заполнены оба поля FromUserID и ToUserID, для системных
// начислений/списаний — только одно.
type Transaction struct {
	ID              int64     `db:"id"`
	FromUserID      *int64    `db:"from_user_id"`     // Отправитель (nil для системных начислений)
	ToUserID        *int64    `db:"to_user_id"`       // Получатель (nil для системных списаний)
	Amount          int64     `db:"amount"`           // Сумма, всегда положительная
	TransactionType string    `db:"transaction_type"` // Тип: 'click', 'transfer', 'quest_reward', ...
	Description     string    `db:"description"`      // Описание для истории
	CreatedAt       time.Time `db:"created_at"`
}

// Допустимые типы транзакций
const (
	TxTypeClick           = "click"            // Заработок кликами
	TxTypePassive         = "passive"          // Пассивный доход (автоклик)
	TxTypeTransfer        = "transfer"         // Перевод между игроками
	TxTypeUpgradePurchase = "upgrade_purchase" // Покупка улучшения
	TxTypeQuestReward     = "quest_reward"     // Награда за задание
	TxTypeStarsPurchase   = "stars_purchase"   // Покупка кристаллов за Telegram Stars
)
