package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Roller231/clicker-dimond/internal/common"
)

// fakeIntentStore — in-memory реализация intentStore с семантикой
// SQL-репозитория: один pending на игрока, идемпотентный Settle.
type fakeIntentStore struct {
	items    map[int64]*ShopItem
	intents  map[string]*PaymentIntent
	credited map[int64]int64
	nextID   int64
}

func newFakeIntentStore(items ...*ShopItem) *fakeIntentStore {
	s := &fakeIntentStore{
		items:    make(map[int64]*ShopItem),
		intents:  make(map[string]*PaymentIntent),
		credited: make(map[int64]int64),
	}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeIntentStore) ActiveItems(_ context.Context) ([]*ShopItem, error) {
	var out []*ShopItem
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *fakeIntentStore) ItemByID(_ context.Context, id int64) (*ShopItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, common.ErrUnknownShopItem
	}
	return item, nil
}

func (s *fakeIntentStore) CreateIntent(_ context.Context, payload string, userID int64, item *ShopItem) (*PaymentIntent, error) {
	for _, in := range s.intents {
		if in.UserID == userID && in.Status == StatusPending {
			return nil, common.ErrPaymentPending
		}
	}
	s.nextID++
	itemID := item.ID
	intent := &PaymentIntent{
		ID: s.nextID, Payload: payload, UserID: userID, ShopItemID: &itemID,
		Crystals: item.Crystals, Stars: item.Stars, Status: StatusPending,
	}
	s.intents[payload] = intent
	return intent, nil
}

func (s *fakeIntentStore) GetByPayload(_ context.Context, payload string) (*PaymentIntent, error) {
	intent, ok := s.intents[payload]
	if !ok {
		return nil, common.ErrNoPendingPayment
	}
	return intent, nil
}

func (s *fakeIntentStore) LatestPending(_ context.Context, userID int64) (*PaymentIntent, error) {
	for _, in := range s.intents {
		if in.UserID == userID && in.Status == StatusPending {
			return in, nil
		}
	}
	return nil, common.ErrNoPendingPayment
}

func (s *fakeIntentStore) Settle(_ context.Context, payload string, now time.Time) (*PaymentIntent, error) {
	intent, ok := s.intents[payload]
	if !ok {
		return nil, common.ErrNoPendingPayment
	}
	switch intent.Status {
	case StatusSuccess:
		return intent, nil
	case StatusFailed:
		return nil, common.ErrNoPendingPayment
	}
	intent.Status = StatusSuccess
	intent.CompletedAt = &now
	s.credited[intent.UserID] += intent.Crystals
	return intent, nil
}

func (s *fakeIntentStore) MarkFailed(_ context.Context, payload string, now time.Time) error {
	if intent, ok := s.intents[payload]; ok && intent.Status == StatusPending {
		intent.Status = StatusFailed
		intent.CompletedAt = &now
	}
	return nil
}

func (s *fakeIntentStore) PurchaseHistory(_ context.Context, userID int64, _ int) ([]*PaymentIntent, error) {
	var out []*PaymentIntent
	for _, in := range s.intents {
		if in.UserID == userID && in.Status == StatusSuccess {
			out = append(out, in)
		}
	}
	return out, nil
}

// fakeProvider выдаёт фиксированную ссылку либо ошибку.
type fakeProvider struct {
	err   error
	calls int
}

func (p *fakeProvider) CreateInvoiceLink(_ context.Context, payload string, _ *ShopItem) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "https://t.me/invoice/" + payload, nil
}

func newTestService(store *fakeIntentStore, provider *fakeProvider) *Service {
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	return NewService(store, provider, common.FixedClock{T: now})
}

func testItem() *ShopItem {
	return &ShopItem{ID: 1, Crystals: 550, Stars: 5, IsActive: true}
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	svc := newTestService(store, &fakeProvider{})

	inv, err := svc.CreateIntent(ctx, 7, 1)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if inv.URL == "" {
		t.Fatal("пустая ссылка на счёт")
	}
	if inv.Intent.Status != StatusPending {
		t.Fatalf("status = %s, ожидался pending", inv.Intent.Status)
	}
	if inv.Intent.Crystals != 550 || inv.Intent.Stars != 5 {
		t.Fatalf("намерение не зафиксировало товар: %+v", inv.Intent)
	}
}

func TestCreateIntent_UnknownItem(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIntentStore(testItem()), &fakeProvider{})

	if _, err := svc.CreateIntent(ctx, 7, 99); err != common.ErrUnknownShopItem {
		t.Fatalf("err = %v, ожидался ErrUnknownShopItem", err)
	}
}

func TestCreateIntent_SecondPendingRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	svc := newTestService(store, &fakeProvider{})

	if _, err := svc.CreateIntent(ctx, 7, 1); err != nil {
		t.Fatalf("первый CreateIntent: %v", err)
	}
	if _, err := svc.CreateIntent(ctx, 7, 1); err != common.ErrPaymentPending {
		t.Fatalf("err = %v, ожидался ErrPaymentPending", err)
	}
}

// Отказ провайдера закрывает намерение, чтобы не блокировать следующую покупку.
func TestCreateIntent_ProviderFailureFreesPlayer(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	broken := &fakeProvider{err: errors.New("bot api недоступен")}
	svc := newTestService(store, broken)

	if _, err := svc.CreateIntent(ctx, 7, 1); err == nil {
		t.Fatal("ожидалась ошибка провайдера")
	}

	svc = newTestService(store, &fakeProvider{})
	if _, err := svc.CreateIntent(ctx, 7, 1); err != nil {
		t.Fatalf("CreateIntent после отказа провайдера: %v", err)
	}
}

func TestSettle_CreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	svc := newTestService(store, &fakeProvider{})

	inv, err := svc.CreateIntent(ctx, 7, 1)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	first, err := svc.Settle(ctx, inv.Intent.Payload)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if first.Status != StatusSuccess {
		t.Fatalf("status = %s, ожидался success", first.Status)
	}
	if store.credited[7] != 550 {
		t.Fatalf("начислено %d, ожидалось 550", store.credited[7])
	}

	// Повтор уведомления провайдера: идемпотентно, без второго начисления.
	second, err := svc.Settle(ctx, inv.Intent.Payload)
	if err != nil {
		t.Fatalf("повторный Settle: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("повторный Settle вернул другое намерение: %d != %d", second.ID, first.ID)
	}
	if store.credited[7] != 550 {
		t.Fatalf("повторный Settle начислил ещё раз: %d", store.credited[7])
	}
}

func TestSettle_UnknownAndFailedPayload(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	svc := newTestService(store, &fakeProvider{})

	if _, err := svc.Settle(ctx, "нет-такого"); err != common.ErrNoPendingPayment {
		t.Fatalf("err = %v, ожидался ErrNoPendingPayment", err)
	}

	inv, err := svc.CreateIntent(ctx, 7, 1)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if err := svc.Fail(ctx, inv.Intent.Payload); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if _, err := svc.Settle(ctx, inv.Intent.Payload); err != common.ErrNoPendingPayment {
		t.Fatalf("settle неуспешного: err = %v, ожидался ErrNoPendingPayment", err)
	}
	if store.credited[7] != 0 {
		t.Fatalf("неуспешное намерение начислило кристаллы: %d", store.credited[7])
	}
}

func TestSettleByPlayer(t *testing.T) {
	ctx := context.Background()
	store := newFakeIntentStore(testItem())
	svc := newTestService(store, &fakeProvider{})

	if _, err := svc.SettleByPlayer(ctx, 7); err != common.ErrNoPendingPayment {
		t.Fatalf("без намерений: err = %v, ожидался ErrNoPendingPayment", err)
	}

	if _, err := svc.CreateIntent(ctx, 7, 1); err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	intent, err := svc.SettleByPlayer(ctx, 7)
	if err != nil {
		t.Fatalf("SettleByPlayer: %v", err)
	}
	if intent.Status != StatusSuccess {
		t.Fatalf("status = %s, ожидался success", intent.Status)
	}
	if store.credited[7] != 550 {
		t.Fatalf("начислено %d, ожидалось 550", store.credited[7])
	}
}
