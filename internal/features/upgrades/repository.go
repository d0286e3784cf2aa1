// Package upgrades — repository.go выполняет операции с таблицами upgrades
// и player_upgrades. Покупка — одна транзакция БД: блокировка игрока,
// проверка уровня и цены, списание, инкремент уровня. Две одновременные
// покупки одного игрока сериализуются на блокировке его строки.
package upgrades

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/features/economy"
)

// Repository предоставляет методы для работы с улучшениями.
type Repository struct {
	db     *pgxpool.Pool
	ledger *economy.Repository
}

// NewRepository создаёт репозиторий улучшений.
func NewRepository(db *pgxpool.Pool, ledger *economy.Repository) *Repository {
	return &Repository{db: db, ledger: ledger}
}

const upgradeColumns = `id, key, title, description, base_price, price_multiplier, max_level, value_per_level, created_at`

// All возвращает все шаблоны улучшений.
func (r *Repository) All(ctx context.Context) ([]*Upgrade, error) {
	rows, err := r.db.Query(ctx, `SELECT `+upgradeColumns+` FROM upgrades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения улучшений: %w", err)
	}
	defer rows.Close()

	var ups []*Upgrade
	for rows.Next() {
		var u Upgrade
		if err := rows.Scan(&u.ID, &u.Key, &u.Title, &u.Description,
			&u.BasePrice, &u.PriceMultiplier, &u.MaxLevel, &u.ValuePerLevel, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования улучшения: %w", err)
		}
		ups = append(ups, &u)
	}
	return ups, rows.Err()
}

// ByKey возвращает улучшение по стабильному ключу.
func (r *Repository) ByKey(ctx context.Context, key string) (*Upgrade, error) {
	var u Upgrade
	err := r.db.QueryRow(ctx,
		`SELECT `+upgradeColumns+` FROM upgrades WHERE key = $1`, key,
	).Scan(&u.ID, &u.Key, &u.Title, &u.Description,
		&u.BasePrice, &u.PriceMultiplier, &u.MaxLevel, &u.ValuePerLevel, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUnknownUpgrade
		}
		return nil, fmt.Errorf("ошибка получения улучшения: %w", err)
	}
	return &u, nil
}

// Level возвращает уровень улучшения у игрока (0, если ещё не покупалось).
func (r *Repository) Level(ctx context.Context, userID, upgradeID int64) (int, error) {
	var level int
	err := r.db.QueryRow(ctx, `
		SELECT level FROM player_upgrades WHERE user_id = $1 AND upgrade_id = $2
	`, userID, upgradeID).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения уровня: %w", err)
	}
	return level, nil
}

// PlayerLevels возвращает уровни всех улучшений игрока: upgrade_id → level.
func (r *Repository) PlayerLevels(ctx context.Context, userID int64) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT upgrade_id, level FROM player_upgrades WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения уровней: %w", err)
	}
	defer rows.Close()

	levels := make(map[int64]int)
	for rows.Next() {
		var id int64
		var level int
		if err := rows.Scan(&id, &level); err != nil {
			return nil, fmt.Errorf("ошибка сканирования уровня: %w", err)
		}
		levels[id] = level
	}
	return levels, rows.Err()
}

// Purchase покупает следующий уровень улучшения. Возвращает новый уровень.
//
// Порядок внутри транзакции фиксированный: сначала блокируется строка
// игрока, затем читается уровень и считается цена — конкурентная покупка
// того же улучшения ждёт на блокировке и увидит уже поднятый уровень.
// При нехватке кристаллов уровень не меняется.
func (r *Repository) Purchase(ctx context.Context, userID int64, up *Upgrade, maxEnergyBase, maxEnergyPerLevel int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var playerID int64
	err = tx.QueryRow(ctx, `SELECT id FROM players WHERE id = $1 FOR UPDATE`, userID).Scan(&playerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrUserNotFound
		}
		return 0, fmt.Errorf("ошибка блокировки игрока: %w", err)
	}

	var level int
	err = tx.QueryRow(ctx, `
		SELECT level FROM player_upgrades WHERE user_id = $1 AND upgrade_id = $2
	`, userID, up.ID).Scan(&level)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("ошибка получения уровня: %w", err)
	}

	if level >= up.MaxLevel {
		return 0, common.ErrMaxLevelReached
	}

	price := Price(up.BasePrice, up.PriceMultiplier, level)
	if err := r.ledger.DebitTx(ctx, tx, userID, price, economy.TxTypeUpgradePurchase,
		fmt.Sprintf("Улучшение «%s» до уровня %d", up.Title, level+1)); err != nil {
		return 0, err
	}

	var newLevel int
	err = tx.QueryRow(ctx, `
		INSERT INTO player_upgrades (user_id, upgrade_id, level)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, upgrade_id) DO UPDATE
		SET level = player_upgrades.level + 1, updated_at = NOW()
		RETURNING level
	`, userID, up.ID).Scan(&newLevel)
	if err != nil {
		return 0, fmt.Errorf("ошибка повышения уровня: %w", err)
	}

	// Улучшение потолка энергии сразу пересчитывает max_energy
	// по формуле base + level × прирост, в той же транзакции.
	if up.Key == KeyMaxEnergy {
		newMax := maxEnergyBase + newLevel*maxEnergyPerLevel
		if _, err := tx.Exec(ctx, `
			UPDATE players SET max_energy = $2, updated_at = NOW() WHERE id = $1
		`, userID, newMax); err != nil {
			return 0, fmt.Errorf("ошибка обновления потолка энергии: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка фиксации: %w", err)
	}
	return newLevel, nil
}
