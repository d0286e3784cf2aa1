package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roller231/clicker-dimond/internal/db/postgres"
)

// Миграции схемы. Нумерация сквозная, применяются по порядку,
// каждая в своей транзакции. Уже применённые версии пропускаются.
var migrations = []struct {
	version int
	sql     string
}{
	{1, migrationPlayers},
	{2, migrationTransactions},
	{3, migrationUpgrades},
	{4, migrationQuests},
	{5, migrationShop},
}

const migrationPlayers = `
CREATE TABLE IF NOT EXISTS players (
	id BIGSERIAL PRIMARY KEY,
	telegram_id BIGINT NOT NULL UNIQUE,
	username VARCHAR(255),
	first_name VARCHAR(255),
	last_name VARCHAR(255),
	url_image TEXT,
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	energy INTEGER NOT NULL DEFAULT 100,
	max_energy INTEGER NOT NULL DEFAULT 100,
	last_energy_update TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_players_balance ON players (balance DESC);
CREATE INDEX IF NOT EXISTS idx_players_username ON players (username);
`

const migrationTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	from_user_id BIGINT REFERENCES players(id),
	to_user_id BIGINT REFERENCES players(id),
	amount BIGINT NOT NULL CHECK (amount > 0),
	transaction_type VARCHAR(32) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions (from_user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions (to_user_id, created_at DESC);
`

const migrationUpgrades = `
CREATE TABLE IF NOT EXISTS upgrades (
	id BIGSERIAL PRIMARY KEY,
	key VARCHAR(64) NOT NULL UNIQUE,
	title VARCHAR(255) NOT NULL,
	description TEXT,
	base_price BIGINT NOT NULL CHECK (base_price > 0),
	price_multiplier BIGINT NOT NULL CHECK (price_multiplier >= 100),
	max_level INTEGER NOT NULL CHECK (max_level > 0),
	value_per_level BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS player_upgrades (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES players(id),
	upgrade_id BIGINT NOT NULL REFERENCES upgrades(id),
	level INTEGER NOT NULL DEFAULT 0 CHECK (level >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, upgrade_id)
);
`

const migrationQuests = `
CREATE TABLE IF NOT EXISTS quests (
	id BIGSERIAL PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	description TEXT,
	period VARCHAR(16) NOT NULL CHECK (period IN ('daily', 'weekly')),
	action_type VARCHAR(32) NOT NULL,
	target_value BIGINT NOT NULL CHECK (target_value > 0),
	reward BIGINT NOT NULL CHECK (reward > 0),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS quest_progress (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES players(id),
	quest_id BIGINT NOT NULL REFERENCES quests(id),
	period_start DATE NOT NULL,
	progress BIGINT NOT NULL DEFAULT 0,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	is_claimed BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, quest_id, period_start)
);

CREATE INDEX IF NOT EXISTS idx_quest_progress_period ON quest_progress (period_start);
`

const migrationShop = `
CREATE TABLE IF NOT EXISTS shop_items (
	id BIGSERIAL PRIMARY KEY,
	crystals BIGINT NOT NULL CHECK (crystals > 0),
	stars INTEGER NOT NULL CHECK (stars > 0),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payment_intents (
	id BIGSERIAL PRIMARY KEY,
	payload VARCHAR(64) NOT NULL UNIQUE,
	user_id BIGINT NOT NULL REFERENCES players(id),
	shop_item_id BIGINT REFERENCES shop_items(id),
	crystals BIGINT NOT NULL CHECK (crystals > 0),
	stars INTEGER NOT NULL CHECK (stars > 0),
	status VARCHAR(16) NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'success', 'failed')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

-- Не больше одного открытого счёта на игрока, даже при гонке запросов.
CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_intents_one_pending
	ON payment_intents (user_id) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_payment_intents_user ON payment_intents (user_id, created_at DESC);
`

// runMigrations применяет все миграции схемы по порядку.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}
	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
	}
	return nil
}

// seedData заполняет справочники стартовыми данными.
// Повторный запуск ничего не дублирует: вставки идут по уникальным ключам.
func seedData(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		INSERT INTO upgrades (key, title, description, base_price, price_multiplier, max_level, value_per_level)
		VALUES
			('click', 'Сила клика', '+1 кристалл за клик на уровень', 10, 135, 100, 1),
			('maxEnergy', 'Запас энергии', '+25 к максимуму энергии на уровень', 20, 135, 100, 25)
		ON CONFLICT (key) DO NOTHING
	`); err != nil {
		return fmt.Errorf("сиды улучшений: %w", err)
	}

	// Магазин и задания не имеют естественного уникального ключа,
	// поэтому сидим только в пустую таблицу.
	if _, err := pool.Exec(ctx, `
		INSERT INTO shop_items (crystals, stars)
		SELECT v.crystals, v.stars
		FROM (VALUES (100, 1), (550, 5), (1200, 10), (2500, 20), (6500, 50))
			AS v(crystals, stars)
		WHERE NOT EXISTS (SELECT 1 FROM shop_items)
	`); err != nil {
		return fmt.Errorf("сиды магазина: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO quests (title, description, period, action_type, target_value, reward)
		SELECT v.title, v.description, v.period, v.action_type, v.target_value, v.reward
		FROM (VALUES
			('Разминка', 'Сделай 100 кликов', 'daily', 'click', 100, 50),
			('Старатель', 'Заработай 500 кристаллов', 'daily', 'earn', 500, 100),
			('Щедрость', 'Переведи 100 кристаллов другому игроку', 'daily', 'transfer', 100, 75),
			('Марафон', 'Сделай 1000 кликов за неделю', 'weekly', 'click', 1000, 500),
			('Инвестор', 'Купи 3 улучшения за неделю', 'weekly', 'buy_upgrade', 3, 750)
		) AS v(title, description, period, action_type, target_value, reward)
		WHERE NOT EXISTS (SELECT 1 FROM quests)
	`); err != nil {
		return fmt.Errorf("сиды заданий: %w", err)
	}

	return nil
}
