package upgrades

import (
	"context"
	"testing"

	"github.com/Roller231/clicker-dimond/internal/common"
	"github.com/Roller231/clicker-dimond/internal/config"
	"github.com/Roller231/clicker-dimond/internal/features/quests"
)

// fakeUpgradeStore — in-memory реализация upgradeStore.
// Покупка списывает кристаллы по той же формуле цены, что и репозиторий.
type fakeUpgradeStore struct {
	upgrades map[string]*Upgrade
	levels   map[int64]map[int64]int // userID → upgradeID → level
	balances map[int64]int64
}

func newFakeUpgradeStore(balances map[int64]int64, ups ...*Upgrade) *fakeUpgradeStore {
	s := &fakeUpgradeStore{
		upgrades: make(map[string]*Upgrade),
		levels:   make(map[int64]map[int64]int),
		balances: balances,
	}
	for _, up := range ups {
		s.upgrades[up.Key] = up
	}
	return s
}

func (s *fakeUpgradeStore) All(_ context.Context) ([]*Upgrade, error) {
	var out []*Upgrade
	for _, up := range s.upgrades {
		out = append(out, up)
	}
	return out, nil
}

func (s *fakeUpgradeStore) ByKey(_ context.Context, key string) (*Upgrade, error) {
	up, ok := s.upgrades[key]
	if !ok {
		return nil, common.ErrUnknownUpgrade
	}
	return up, nil
}

func (s *fakeUpgradeStore) Level(_ context.Context, userID, upgradeID int64) (int, error) {
	return s.levels[userID][upgradeID], nil
}

func (s *fakeUpgradeStore) PlayerLevels(_ context.Context, userID int64) (map[int64]int, error) {
	return s.levels[userID], nil
}

func (s *fakeUpgradeStore) Purchase(_ context.Context, userID int64, up *Upgrade, _, _ int) (int, error) {
	level := s.levels[userID][up.ID]
	if level >= up.MaxLevel {
		return 0, common.ErrMaxLevelReached
	}
	price := Price(up.BasePrice, up.PriceMultiplier, level)
	if s.balances[userID] < price {
		return 0, common.ErrInsufficientBalance
	}
	s.balances[userID] -= price
	if s.levels[userID] == nil {
		s.levels[userID] = make(map[int64]int)
	}
	s.levels[userID][up.ID] = level + 1
	return level + 1, nil
}

type fakeQuestRecorder struct {
	actions map[string]int64
}

func (r *fakeQuestRecorder) RecordProgress(_ context.Context, _ int64, actionType string, amount int64) error {
	if r.actions == nil {
		r.actions = make(map[string]int64)
	}
	r.actions[actionType] += amount
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ClickBaseValue:    1,
		MaxEnergyBase:     100,
		MaxEnergyPerLevel: 25,
	}
}

func clickUpgrade() *Upgrade {
	return &Upgrade{
		ID: 1, Key: KeyClick, Title: "Сила клика",
		BasePrice: 10, PriceMultiplier: 135, MaxLevel: 3, ValuePerLevel: 1,
	}
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{7: 100}, clickUpgrade())
	recorder := &fakeQuestRecorder{}
	svc := NewService(store, recorder, testConfig())

	level, err := svc.Purchase(ctx, 7, KeyClick)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if level != 1 {
		t.Fatalf("level = %d, ожидался 1", level)
	}
	if store.balances[7] != 90 {
		t.Fatalf("balance = %d, ожидалось 90 (цена уровня 1 = 10)", store.balances[7])
	}
	if recorder.actions[quests.ActionBuyUpgrade] != 1 {
		t.Fatalf("покупка не учтена в прогрессе заданий: %+v", recorder.actions)
	}

	// Второй уровень дороже: 10 × 1.35 = 13.
	if _, err := svc.Purchase(ctx, 7, KeyClick); err != nil {
		t.Fatalf("вторая Purchase: %v", err)
	}
	if store.balances[7] != 77 {
		t.Fatalf("balance = %d, ожидалось 77", store.balances[7])
	}
}

func TestPurchase_Errors(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{7: 5}, clickUpgrade())
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	if _, err := svc.Purchase(ctx, 7, "нет-такого"); err != common.ErrUnknownUpgrade {
		t.Fatalf("err = %v, ожидался ErrUnknownUpgrade", err)
	}

	if _, err := svc.Purchase(ctx, 7, KeyClick); err != common.ErrInsufficientBalance {
		t.Fatalf("err = %v, ожидался ErrInsufficientBalance", err)
	}
	if store.balances[7] != 5 {
		t.Fatalf("баланс изменился при отказе: %d", store.balances[7])
	}
}

func TestPurchase_MaxLevel(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{7: 1000000}, clickUpgrade())
	store.levels[7] = map[int64]int{1: 3}
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	if _, err := svc.Purchase(ctx, 7, KeyClick); err != common.ErrMaxLevelReached {
		t.Fatalf("err = %v, ожидался ErrMaxLevelReached", err)
	}
}

func TestClickPower(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{}, clickUpgrade())
	store.levels[7] = map[int64]int{1: 2}
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	power, err := svc.ClickPower(ctx, 7)
	if err != nil {
		t.Fatalf("ClickPower: %v", err)
	}
	if power != 3 {
		t.Fatalf("power = %d, ожидалось 3 (база 1 + уровень 2 × 1)", power)
	}

	// Игрок без улучшений кликает по базе.
	power, err = svc.ClickPower(ctx, 8)
	if err != nil {
		t.Fatalf("ClickPower: %v", err)
	}
	if power != 1 {
		t.Fatalf("power = %d, ожидалась база 1", power)
	}
}

// Улучшение клика не заведено в справочнике — работает голая база,
// а не ошибка.
func TestClickPower_NoUpgradeConfigured(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{})
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	power, err := svc.ClickPower(ctx, 7)
	if err != nil {
		t.Fatalf("ClickPower: %v", err)
	}
	if power != 1 {
		t.Fatalf("power = %d, ожидалась база 1", power)
	}
}

func TestNextPrice(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{}, clickUpgrade())
	store.levels[7] = map[int64]int{1: 2}
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	price, err := svc.NextPrice(ctx, 7, KeyClick)
	if err != nil {
		t.Fatalf("NextPrice: %v", err)
	}
	if price != 18 {
		t.Fatalf("price = %d, ожидалось 18 (10 × 1.35²)", price)
	}
}

func TestListForPlayer(t *testing.T) {
	ctx := context.Background()
	store := newFakeUpgradeStore(map[int64]int64{}, clickUpgrade())
	store.levels[7] = map[int64]int{1: 3} // максимальный уровень
	svc := NewService(store, &fakeQuestRecorder{}, testConfig())

	list, err := svc.ListForPlayer(ctx, 7)
	if err != nil {
		t.Fatalf("ListForPlayer: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("получено %d улучшений, ожидалось 1", len(list))
	}
	info := list[0]
	if info.Level != 3 || info.MaxLevel != 3 {
		t.Fatalf("уровни: %d/%d, ожидалось 3/3", info.Level, info.MaxLevel)
	}
	// На максимуме цена не должна уходить за пределы шкалы уровней.
	if info.NextPrice != Price(10, 135, 2) {
		t.Fatalf("NextPrice = %d, ожидалась цена последнего уровня", info.NextPrice)
	}
}
