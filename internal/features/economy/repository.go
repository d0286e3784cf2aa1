// Package economy — repository.go выполняет все операции с балансом игроков
// и таблицей transactions. Каждое движение средств — транзакция БД:
// баланс и запись в историю меняются атомарно, частичный эффект невозможен.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roller231/clicker-dimond/internal/common"
)

// Repository предоставляет методы для работы с балансами и историей операций.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Credit начисляет кристаллы игроку.
func (r *Repository) Credit(ctx context.Context, userID, amount int64, txType, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.CreditTx(ctx, tx, userID, amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Debit списывает кристаллы. Баланс не может стать отрицательным:
// строка игрока блокируется (FOR UPDATE), проверка и списание атомарны.
func (r *Repository) Debit(ctx context.Context, userID, amount int64, txType, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.DebitTx(ctx, tx, userID, amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Transfer переводит кристаллы от одного игрока к другому.
// Обе строки блокируются одним запросом в порядке возрастания id —
// два встречных перевода не могут взять блокировки крест-накрест
// и устроить deadlock. Либо оба баланса обновятся, либо ни одного.
func (r *Repository) Transfer(ctx context.Context, fromUserID, toUserID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, balance FROM players WHERE id = ANY($1) ORDER BY id FOR UPDATE
	`, []int64{fromUserID, toUserID})
	if err != nil {
		return fmt.Errorf("ошибка блокировки игроков: %w", err)
	}

	balances := make(map[int64]int64, 2)
	for rows.Next() {
		var id, balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			rows.Close()
			return fmt.Errorf("ошибка чтения баланса: %w", err)
		}
		balances[id] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка чтения игроков: %w", err)
	}

	senderBalance, ok := balances[fromUserID]
	if !ok {
		return common.ErrUserNotFound
	}
	if _, ok := balances[toUserID]; !ok {
		return common.ErrUserNotFound
	}
	if senderBalance < amount {
		return common.ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players SET balance = balance - $2, updated_at = NOW() WHERE id = $1
	`, fromUserID, amount); err != nil {
		return fmt.Errorf("ошибка списания у отправителя: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE players SET balance = balance + $2, updated_at = NOW() WHERE id = $1
	`, toUserID, amount); err != nil {
		return fmt.Errorf("ошибка начисления получателю: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4, $5)
	`, fromUserID, toUserID, amount, TxTypeTransfer,
		fmt.Sprintf("Перевод %d кристаллов", amount)); err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	return tx.Commit(ctx)
}

// CreditTx начисляет кристаллы внутри уже открытой транзакции БД.
// Используется заданиями и платежами, чтобы начисление награды и смена
// их собственного статуса зафиксировались одним коммитом.
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, txType, description string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE players SET balance = balance + $2, updated_at = NOW() WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (to_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, txType, description); err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// DebitTx списывает кристаллы внутри уже открытой транзакции БД.
// Блокирует строку игрока; если блокировка уже взята этой же транзакцией,
// повторный FOR UPDATE ничего не стоит.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, userID, amount int64, txType, description string) error {
	var balance int64
	err := tx.QueryRow(ctx, `
		SELECT balance FROM players WHERE id = $1 FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	if balance < amount {
		return common.ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players SET balance = balance - $2, updated_at = NOW() WHERE id = $1
	`, userID, amount); err != nil {
		return fmt.Errorf("ошибка списания: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, txType, description); err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// GetBalance возвращает текущий баланс игрока.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM players WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrUserNotFound
		}
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// GetTransactions возвращает последние N операций игрока,
// входящие и исходящие.
func (r *Repository) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransfers возвращает последние переводы игрока (только p2p-операции).
func (r *Repository) GetTransfers(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE transaction_type = $2 AND (from_user_id = $1 OR to_user_id = $1)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, TxTypeTransfer, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения переводов: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.FromUserID, &t.ToUserID,
			&t.Amount, &t.TransactionType, &t.Description, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
