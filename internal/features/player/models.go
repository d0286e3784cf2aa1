// Package player управляет игроками: профиль, баланс, энергия.
// models.go описывает структуру игрока и типизированные команды изменения.
package player

import "time"

// Player представляет игрока кликера.
// Баланс хранится в целых кристаллах (BIGINT) — никакой плавающей точки,
// чтобы деньги не «плыли» на округлениях. Инварианты:
// balance >= 0 и 0 <= energy <= max_energy в любой момент времени.
type Player struct {
	ID               int64      `db:"id"`
	TelegramID       int64      `db:"telegram_id"`
	Username         *string    `db:"username"`
	FirstName        *string    `db:"first_name"`
	LastName         *string    `db:"last_name"`
	URLImage         *string    `db:"url_image"`
	Balance          int64      `db:"balance"`            // Кристаллы
	Energy           int        `db:"energy"`             // Текущая энергия
	MaxEnergy        int        `db:"max_energy"`         // Потолок энергии
	LastEnergyUpdate *time.Time `db:"last_energy_update"` // Когда энергия фиксировалась в последний раз
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// CreatePlayerCommand — данные для регистрации нового игрока.
type CreatePlayerCommand struct {
	TelegramID int64
	Username   *string
	FirstName  *string
	LastName   *string
	URLImage   *string
}

// UpdateProfileCommand перечисляет изменяемые поля профиля.
// Баланс и энергия сюда не входят намеренно: они двигаются только через
// леджер и операции энергии, никакого обобщённого patch по полям.
type UpdateProfileCommand struct {
	Username  *string
	FirstName *string
	LastName  *string
	URLImage  *string
}
