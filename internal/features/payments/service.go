package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Roller231/clicker-dimond/internal/common"
)

type intentStore interface {
	ActiveItems(ctx context.Context) ([]*ShopItem, error)
	ItemByID(ctx context.Context, id int64) (*ShopItem, error)
	CreateIntent(ctx context.Context, payload string, userID int64, item *ShopItem) (*PaymentIntent, error)
	GetByPayload(ctx context.Context, payload string) (*PaymentIntent, error)
	LatestPending(ctx context.Context, userID int64) (*PaymentIntent, error)
	Settle(ctx context.Context, payload string, now time.Time) (*PaymentIntent, error)
	MarkFailed(ctx context.Context, payload string, now time.Time) error
	PurchaseHistory(ctx context.Context, userID int64, limit int) ([]*PaymentIntent, error)
}

// invoiceIssuer выставляет счёт у платёжного провайдера.
type invoiceIssuer interface {
	CreateInvoiceLink(ctx context.Context, payload string, item *ShopItem) (string, error)
}

// Service — сервис донатного магазина.
type Service struct {
	store    intentStore
	provider invoiceIssuer
	clock    common.Clock
}

func NewService(store intentStore, provider invoiceIssuer, clock common.Clock) *Service {
	return &Service{store: store, provider: provider, clock: clock}
}

// Items возвращает активные товары магазина.
func (s *Service) Items(ctx context.Context) ([]*ShopItem, error) {
	return s.store.ActiveItems(ctx)
}

// Invoice — выставленный счёт: ссылка на оплату и намерение для сверки.
type Invoice struct {
	Intent *PaymentIntent
	URL    string
}

// CreateIntent создаёт платёжное намерение и выставляет счёт у провайдера.
// Намерение пишется в базу до сетевого вызова: даже если процесс умрёт между
// записью и ответом провайдера, подтверждение по payload всё равно сойдётся.
// Если провайдер отказал, намерение закрывается как failed, чтобы не блокировать
// игроку следующую покупку.
func (s *Service) CreateIntent(ctx context.Context, userID, itemID int64) (*Invoice, error) {
	item, err := s.store.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	payload := uuid.NewString()
	intent, err := s.store.CreateIntent(ctx, payload, userID, item)
	if err != nil {
		return nil, err
	}

	url, err := s.provider.CreateInvoiceLink(ctx, payload, item)
	if err != nil {
		if failErr := s.store.MarkFailed(ctx, payload, s.clock.Now()); failErr != nil {
			log.WithError(failErr).WithField("payload", payload).
				Error("Не удалось закрыть намерение после отказа провайдера")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"payload": payload,
		"stars":   item.Stars,
	}).Info("Выставлен счёт в Telegram Stars")

	return &Invoice{Intent: intent, URL: url}, nil
}

// Settle подтверждает оплату по токену сверки из уведомления провайдера.
// Идемпотентен: повтор уведомления вернёт то же намерение без второго начисления.
func (s *Service) Settle(ctx context.Context, payload string) (*PaymentIntent, error) {
	intent, err := s.store.Settle(ctx, payload, s.clock.Now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  intent.UserID,
		"payload":  payload,
		"crystals": intent.Crystals,
	}).Info("Платёж подтверждён, кристаллы начислены")

	return intent, nil
}

// SettleByPlayer подтверждает открытое намерение игрока, когда уведомление
// провайдера не содержит payload. Если открытого намерения нет —
// common.ErrNoPendingPayment.
func (s *Service) SettleByPlayer(ctx context.Context, userID int64) (*PaymentIntent, error) {
	pending, err := s.store.LatestPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Settle(ctx, pending.Payload)
}

// Fail закрывает открытое намерение как неуспешное (отмена или отказ оплаты).
func (s *Service) Fail(ctx context.Context, payload string) error {
	return s.store.MarkFailed(ctx, payload, s.clock.Now())
}

// Status возвращает намерение по токену сверки — для проверки, чем
// закончился платёж.
func (s *Service) Status(ctx context.Context, payload string) (*PaymentIntent, error) {
	return s.store.GetByPayload(ctx, payload)
}

// History возвращает успешные покупки игрока.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*PaymentIntent, error) {
	return s.store.PurchaseHistory(ctx, userID, limit)
}
