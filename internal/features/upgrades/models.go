// Package upgrades управляет улучшениями: покупаемыми модификаторами,
// которые растут по уровням и усиливают клик или запас энергии.
// models.go описывает шаблоны улучшений и уровни игроков.
package upgrades

import "time"

// Ключи встроенных улучшений.
// Ключ "maxEnergy" особый: его уровень пересчитывает потолок энергии игрока.
const (
	KeyClick     = "click"
	KeyMaxEnergy = "maxEnergy"
)

// Upgrade — шаблон улучшения. Для ядра неизменяем, правится только админкой.
type Upgrade struct {
	ID          int64   `db:"id"`
	Key         string  `db:"key"` // Стабильный идентификатор
	Title       string  `db:"title"`
	Description *string `db:"description"`
	BasePrice   int64   `db:"base_price"`
	// Множитель цены в сотых долях: 135 = ×1.35 за уровень.
	PriceMultiplier int64     `db:"price_multiplier"`
	MaxLevel        int       `db:"max_level"`
	ValuePerLevel   int64     `db:"value_per_level"` // Прирост эффекта за уровень
	CreatedAt       time.Time `db:"created_at"`
}

// PlayerUpgrade — уровень улучшения у конкретного игрока.
// Создаётся при первой покупке; уровень только растёт, ровно на 1 за покупку.
type PlayerUpgrade struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	UpgradeID int64     `db:"upgrade_id"`
	Level     int       `db:"level"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PlayerUpgradeInfo — улучшение с уровнем игрока и ценой следующего уровня.
type PlayerUpgradeInfo struct {
	Key       string
	Title     string
	Level     int
	MaxLevel  int
	NextPrice int64 // Цена следующего уровня; на максимуме совпадает с ценой текущего
}
