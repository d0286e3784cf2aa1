package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/features/economy"
)

const intentColumns = `id, payload, user_id, shop_item_id, crystals, stars, status, created_at, completed_at`

// Repository — репозиторий магазина и платёжных намерений.
// Начисление кристаллов при подтверждении идёт через репозиторий экономики
// в той же транзакции, что и смена статуса.
type Repository struct {
	db     *pgxpool.Pool
	ledger *economy.Repository
}

func NewRepository(db *pgxpool.Pool, ledger *economy.Repository) *Repository {
	return &Repository{db: db, ledger: ledger}
}

// ActiveItems возвращает активные товары магазина по возрастанию цены.
func (r *Repository) ActiveItems(ctx context.Context) ([]*ShopItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, crystals, stars, is_active, created_at
		FROM shop_items
		WHERE is_active = TRUE
		ORDER BY stars ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ShopItem
	for rows.Next() {
		item := &ShopItem{}
		if err := rows.Scan(&item.ID, &item.Crystals, &item.Stars, &item.IsActive, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemByID возвращает активный товар магазина.
func (r *Repository) ItemByID(ctx context.Context, id int64) (*ShopItem, error) {
	item := &ShopItem{}
	err := r.db.QueryRow(ctx, `
		SELECT id, crystals, stars, is_active, created_at
		FROM shop_items
		WHERE id = $1 AND is_active = TRUE`, id).
		Scan(&item.ID, &item.Crystals, &item.Stars, &item.IsActive, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUnknownShopItem
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateIntent создаёт ожидающее платёжное намерение.
// Частичный уникальный индекс по (user_id) WHERE status = 'pending' гарантирует
// не больше одного открытого счёта на игрока даже при гонке запросов:
// проигравший получает ErrPaymentPending.
func (r *Repository) CreateIntent(ctx context.Context, payload string, userID int64, item *ShopItem) (*PaymentIntent, error) {
	intent := &PaymentIntent{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO payment_intents (payload, user_id, shop_item_id, crystals, stars, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING `+intentColumns,
		payload, userID, item.ID, item.Crystals, item.Stars).
		Scan(&intent.ID, &intent.Payload, &intent.UserID, &intent.ShopItemID,
			&intent.Crystals, &intent.Stars, &intent.Status, &intent.CreatedAt, &intent.CompletedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, common.ErrPaymentPending
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// GetByPayload возвращает намерение по токену сверки.
func (r *Repository) GetByPayload(ctx context.Context, payload string) (*PaymentIntent, error) {
	return r.getOne(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE payload = $1`, payload)
}

// LatestPending возвращает открытое намерение игрока, если оно есть.
func (r *Repository) LatestPending(ctx context.Context, userID int64) (*PaymentIntent, error) {
	return r.getOne(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`, userID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*PaymentIntent, error) {
	intent := &PaymentIntent{}
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&intent.ID, &intent.Payload, &intent.UserID, &intent.ShopItemID,
			&intent.Crystals, &intent.Stars, &intent.Status, &intent.CreatedAt, &intent.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// Settle подтверждает платёж по токену: переводит намерение в success и
// начисляет кристаллы одной транзакцией. Повторное подтверждение уже
// успешного намерения идемпотентно: возвращает его без второго начисления.
func (r *Repository) Settle(ctx context.Context, payload string, now time.Time) (*PaymentIntent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	intent := &PaymentIntent{}
	err = tx.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE payload = $1
		FOR UPDATE`, payload).
		Scan(&intent.ID, &intent.Payload, &intent.UserID, &intent.ShopItemID,
			&intent.Crystals, &intent.Stars, &intent.Status, &intent.CreatedAt, &intent.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case StatusSuccess:
		// Повтор подтверждения от провайдера: кристаллы уже начислены.
		return intent, nil
	case StatusFailed:
		return nil, common.ErrNoPendingPayment
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payment_intents
		SET status = 'success', completed_at = $2
		WHERE id = $1`, intent.ID, now); err != nil {
		return nil, err
	}

	if err := r.ledger.CreditTx(ctx, tx, intent.UserID, intent.Crystals,
		economy.TxTypeStarsPurchase, "Покупка кристаллов за Telegram Stars"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	intent.Status = StatusSuccess
	intent.CompletedAt = &now
	return intent, nil
}

// MarkFailed переводит открытое намерение в failed. Терминальные статусы не трогает.
func (r *Repository) MarkFailed(ctx context.Context, payload string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_intents
		SET status = 'failed', completed_at = $2
		WHERE payload = $1 AND status = 'pending'`, payload, now)
	return err
}

// PurchaseHistory возвращает успешные покупки игрока, новые первыми.
func (r *Repository) PurchaseHistory(ctx context.Context, userID int64, limit int) ([]*PaymentIntent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE user_id = $1 AND status = 'success'
		ORDER BY completed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []*PaymentIntent
	for rows.Next() {
		intent := &PaymentIntent{}
		if err := rows.Scan(&intent.ID, &intent.Payload, &intent.UserID, &intent.ShopItemID,
			&intent.Crystals, &intent.Stars, &intent.Status, &intent.CreatedAt, &intent.CompletedAt); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}
