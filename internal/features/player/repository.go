// Package player — repository.go выполняет операции с таблицей players.
// Восстановление и трата энергии идут в транзакциях с блокировкой строки:
// ленивое начисление и списание не гоняются друг с другом.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/features/economy"
)

// Repository предоставляет методы для работы с таблицей players.
// Начисление за клики идёт через репозиторий экономики в той же
// транзакции, что и списание энергии.
type Repository struct {
	db     *pgxpool.Pool
	ledger *economy.Repository
}

// NewRepository создаёт репозиторий игроков.
func NewRepository(db *pgxpool.Pool, ledger *economy.Repository) *Repository {
	return &Repository{db: db, ledger: ledger}
}

const playerColumns = `
	id, telegram_id, username, first_name, last_name, url_image,
	balance, energy, max_energy, last_energy_update, created_at, updated_at`

// Create регистрирует нового игрока с нулевым балансом и полной энергией.
// Повторная регистрация того же telegram_id возвращает существующую запись.
func (r *Repository) Create(ctx context.Context, cmd CreatePlayerCommand, startEnergy int) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, `
		INSERT INTO players (telegram_id, username, first_name, last_name, url_image,
		                     balance, energy, max_energy, last_energy_update)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $6, NOW())
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING `+playerColumns,
		cmd.TelegramID, cmd.Username, cmd.FirstName, cmd.LastName, cmd.URLImage, startEnergy,
	).Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.URLImage,
		&p.Balance, &p.Energy, &p.MaxEnergy, &p.LastEnergyUpdate, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Конфликт по telegram_id — игрок уже есть.
		return r.GetByTelegramID(ctx, cmd.TelegramID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка создания игрока: %w", err)
	}
	return &p, nil
}

// GetByTelegramID возвращает игрока по Telegram ID.
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*Player, error) {
	return r.getOne(ctx, `SELECT`+playerColumns+` FROM players WHERE telegram_id = $1`, telegramID)
}

// GetByUsername возвращает игрока по username (для переводов по нику).
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Player, error) {
	return r.getOne(ctx, `SELECT`+playerColumns+` FROM players WHERE username = $1`, username)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.URLImage,
		&p.Balance, &p.Energy, &p.MaxEnergy, &p.LastEnergyUpdate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка получения игрока: %w", err)
	}
	return &p, nil
}

// Leaderboard возвращает топ игроков по балансу.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]*Player, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+playerColumns+` FROM players ORDER BY balance DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа: %w", err)
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(
			&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.URLImage,
			&p.Balance, &p.Energy, &p.MaxEnergy, &p.LastEnergyUpdate, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования игрока: %w", err)
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

// UpdateProfile обновляет поля профиля из типизированной команды.
// Nil-поля не трогаются. Баланс и энергия этим путём недостижимы.
func (r *Repository) UpdateProfile(ctx context.Context, userID int64, cmd UpdateProfileCommand) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, `
		UPDATE players
		SET username   = COALESCE($2, username),
		    first_name = COALESCE($3, first_name),
		    last_name  = COALESCE($4, last_name),
		    url_image  = COALESCE($5, url_image),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+playerColumns,
		userID, cmd.Username, cmd.FirstName, cmd.LastName, cmd.URLImage,
	).Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.URLImage,
		&p.Balance, &p.Energy, &p.MaxEnergy, &p.LastEnergyUpdate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return &p, nil
}

// RegenerateEnergy лениво доначисляет энергию за прошедшее время.
// Строка блокируется на время пересчёта. Если энергия не выросла,
// ничего не пишем — метка времени остаётся прежней, округление секунд
// не дрейфует на частых чтениях.
func (r *Repository) RegenerateEnergy(ctx context.Context, userID int64, now time.Time, perSecond int) (*Player, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := r.lockAndRegen(ctx, tx, userID, now, perSecond)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации: %w", err)
	}
	return p, nil
}

// Click тратит энергию за пачку кликов и начисляет заработанные кристаллы.
// Всё в одной транзакции: либо энергия списана и кристаллы начислены,
// либо ничего не изменилось — частичный эффект невозможен.
// Сначала доначисляем энергию за прошедшее время, затем проверяем остаток.
func (r *Repository) Click(ctx context.Context, userID int64, clicks int, earned int64, now time.Time, perSecond int) (*Player, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := r.lockAndRegen(ctx, tx, userID, now, perSecond)
	if err != nil {
		return nil, err
	}

	if p.Energy < clicks {
		return nil, common.ErrInsufficientEnergy
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players SET energy = $2, last_energy_update = $3, updated_at = NOW()
		WHERE id = $1
	`, userID, p.Energy-clicks, now); err != nil {
		return nil, fmt.Errorf("ошибка списания энергии: %w", err)
	}

	if err := r.ledger.CreditTx(ctx, tx, userID, earned,
		economy.TxTypeClick, "Кристаллы за клики"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации: %w", err)
	}

	p.Energy -= clicks
	p.LastEnergyUpdate = &now
	p.Balance += earned
	return p, nil
}

// lockAndRegen блокирует строку игрока, пересчитывает энергию и пишет
// новое значение, если оно выросло. Вызывается только внутри транзакции.
func (r *Repository) lockAndRegen(ctx context.Context, tx pgx.Tx, userID int64, now time.Time, perSecond int) (*Player, error) {
	var p Player
	err := tx.QueryRow(ctx,
		`SELECT`+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, userID,
	).Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.URLImage,
		&p.Balance, &p.Energy, &p.MaxEnergy, &p.LastEnergyUpdate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки игрока: %w", err)
	}

	// Пустая метка = игрок только что создан, задним числом не начисляем.
	last := now
	if p.LastEnergyUpdate != nil {
		last = *p.LastEnergyUpdate
	}

	newEnergy := regeneratedEnergy(p.Energy, p.MaxEnergy, now.Sub(last), perSecond)
	if newEnergy > p.Energy {
		if _, err := tx.Exec(ctx, `
			UPDATE players SET energy = $2, last_energy_update = $3, updated_at = NOW()
			WHERE id = $1
		`, userID, newEnergy, now); err != nil {
			return nil, fmt.Errorf("ошибка восстановления энергии: %w", err)
		}
		p.Energy = newEnergy
		p.LastEnergyUpdate = &now
	}

	return &p, nil
}
