// Package payments управляет донатным магазином и платёжными намерениями:
// покупкой кристаллов за Telegram Stars с идемпотентным подтверждением.
// models.go описывает товары и платёжные намерения.
package payments

import "time"

// Статусы платёжного намерения. Переходы только вперёд:
// pending → success или pending → failed; терминальные статусы не меняются.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ShopItem — товар донатного магазина: пачка кристаллов за звёзды.
type ShopItem struct {
	ID        int64     `db:"id"`
	Crystals  int64     `db:"crystals"` // Сколько кристаллов начисляется
	Stars     int       `db:"stars"`    // Цена в Telegram Stars
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// PaymentIntent — платёжное намерение.
// Payload — уникальный непрозрачный токен: он уходит провайдеру вместе со
// счётом и возвращается в подтверждении, это единственный ключ сверки.
// Запись долговечна: переживает рестарт сервиса и видна всем инстансам —
// никакого состояния платежей в памяти процесса.
type PaymentIntent struct {
	ID          int64      `db:"id"`
	Payload     string     `db:"payload"`
	UserID      int64      `db:"user_id"`
	ShopItemID  *int64     `db:"shop_item_id"`
	Crystals    int64      `db:"crystals"` // Фиксируем на момент создания: правка товара не меняет уже выставленный счёт
	Stars       int        `db:"stars"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}
