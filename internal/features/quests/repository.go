// Package quests — repository.go выполняет операции с таблицами quests
// и quest_progress. Выдача награды и отметка is_claimed фиксируются одной
// транзакцией БД вместе с начислением кристаллов через леджер.
package quests

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

// Repository предоставляет методы для работы с заданиями и прогрессом.
type Repository struct {
	db     *pgxpool.Pool
	ledger *economy.Repository
}

// NewRepository создаёт репозиторий заданий.
func NewRepository(db *pgxpool.Pool, ledger *economy.Repository) *Repository {
	return &Repository{db: db, ledger: ledger}
}

const questColumns = `id, period, action_type, target_value, reward, title, description, is_active, created_at`

// ActiveQuests возвращает все включённые задания.
func (r *Repository) ActiveQuests(ctx context.Context) ([]*Quest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questColumns+` FROM quests WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заданий: %w", err)
	}
	defer rows.Close()
	return scanQuests(rows)
}

// ActiveByAction возвращает включённые задания, считающие указанное действие.
func (r *Repository) ActiveByAction(ctx context.Context, actionType string) ([]*Quest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questColumns+` FROM quests WHERE is_active AND action_type = $1 ORDER BY id`,
		actionType)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заданий: %w", err)
	}
	defer rows.Close()
	return scanQuests(rows)
}

// GetByID возвращает задание по id.
func (r *Repository) GetByID(ctx context.Context, questID int64) (*Quest, error) {
	var q Quest
	err := r.db.QueryRow(ctx,
		`SELECT `+questColumns+` FROM quests WHERE id = $1`, questID,
	).Scan(&q.ID, &q.Period, &q.ActionType, &q.TargetValue, &q.Reward,
		&q.Title, &q.Description, &q.IsActive, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUnknownQuest
		}
		return nil, fmt.Errorf("ошибка получения задания: %w", err)
	}
	return &q, nil
}

// GetOrCreateProgress возвращает строку прогресса игрока для периода,
// лениво создавая её с нулями при первом обращении.
func (r *Repository) GetOrCreateProgress(ctx context.Context, userID, questID int64, periodStart time.Time) (*Progress, error) {
	var p Progress
	err := r.db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, period_start, progress, is_completed, is_claimed)
		VALUES ($1, $2, $3, 0, FALSE, FALSE)
		ON CONFLICT (user_id, quest_id, period_start) DO NOTHING
		RETURNING id, user_id, quest_id, period_start, progress, is_completed, is_claimed, updated_at
	`, userID, questID, periodStart).Scan(
		&p.ID, &p.UserID, &p.QuestID, &p.PeriodStart,
		&p.Progress, &p.IsCompleted, &p.IsClaimed, &p.UpdatedAt,
	)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка создания прогресса: %w", err)
	}

	// Строка уже была — читаем её.
	err = r.db.QueryRow(ctx, `
		SELECT id, user_id, quest_id, period_start, progress, is_completed, is_claimed, updated_at
		FROM quest_progress
		WHERE user_id = $1 AND quest_id = $2 AND period_start = $3
	`, userID, questID, periodStart).Scan(
		&p.ID, &p.UserID, &p.QuestID, &p.PeriodStart,
		&p.Progress, &p.IsCompleted, &p.IsClaimed, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прогресса: %w", err)
	}
	return &p, nil
}

// AddProgress монотонно наращивает прогресс и выставляет is_completed,
// когда цель достигнута. Всё одним запросом: конкурентные добавления
// не теряют друг друга. Замороженная (is_claimed) строка не меняется —
// тогда возвращается (nil, nil).
func (r *Repository) AddProgress(ctx context.Context, userID, questID int64, periodStart time.Time, amount, target int64) (*Progress, error) {
	var p Progress
	err := r.db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, period_start, progress, is_completed, is_claimed)
		VALUES ($1, $2, $3, $4, $4 >= $5, FALSE)
		ON CONFLICT (user_id, quest_id, period_start) DO UPDATE
		SET progress     = quest_progress.progress + EXCLUDED.progress,
		    is_completed = quest_progress.is_completed OR quest_progress.progress + EXCLUDED.progress >= $5,
		    updated_at   = NOW()
		WHERE NOT quest_progress.is_claimed
		RETURNING id, user_id, quest_id, period_start, progress, is_completed, is_claimed, updated_at
	`, userID, questID, periodStart, amount, target).Scan(
		&p.ID, &p.UserID, &p.QuestID, &p.PeriodStart,
		&p.Progress, &p.IsCompleted, &p.IsClaimed, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Награда уже забрана — прогресс заморожен.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления прогресса: %w", err)
	}
	return &p, nil
}

// ClaimReward атомарно отмечает награду полученной и начисляет кристаллы.
// UPDATE с условием is_completed AND NOT is_claimed гарантирует ровно одну
// выдачу даже при одновременных запросах: второй увидит 0 строк.
func (r *Repository) ClaimReward(ctx context.Context, userID, questID int64, periodStart time.Time, reward int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE quest_progress
		SET is_claimed = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND quest_id = $2 AND period_start = $3
		  AND is_completed AND NOT is_claimed
	`, userID, questID, periodStart)
	if err != nil {
		return fmt.Errorf("ошибка отметки награды: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Выясняем, почему не прошло: рано или уже получено.
		var completed, claimed bool
		err := tx.QueryRow(ctx, `
			SELECT is_completed, is_claimed FROM quest_progress
			WHERE user_id = $1 AND quest_id = $2 AND period_start = $3
		`, userID, questID, periodStart).Scan(&completed, &claimed)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrQuestNotCompleted
		}
		if err != nil {
			return fmt.Errorf("ошибка чтения прогресса: %w", err)
		}
		if claimed {
			return common.ErrQuestAlreadyClaimed
		}
		return common.ErrQuestNotCompleted
	}

	if err := r.ledger.CreditTx(ctx, tx, userID, reward, economy.TxTypeQuestReward,
		fmt.Sprintf("Награда за задание #%d", questID)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteBefore удаляет прогресс заданий вида period, начатый до before.
// Возвращает число удалённых строк.
func (r *Repository) DeleteBefore(ctx context.Context, period string, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM quest_progress
		USING quests
		WHERE quest_progress.quest_id = quests.id
		  AND quests.period = $1
		  AND quest_progress.period_start < $2
	`, period, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки прогресса: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanQuests(rows pgx.Rows) ([]*Quest, error) {
	var quests []*Quest
	for rows.Next() {
		var q Quest
		if err := rows.Scan(&q.ID, &q.Period, &q.ActionType, &q.TargetValue, &q.Reward,
			&q.Title, &q.Description, &q.IsActive, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования задания: %w", err)
		}
		quests = append(quests, &q)
	}
	return quests, rows.Err()
}
