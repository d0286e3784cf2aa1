package quests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Roller231/clicker-dimond/internal/common"
)

// fakeStore — in-memory реализация progressStore с той же семантикой,
// что у SQL-репозитория: ленивое создание строк, заморозка после claim,
// разовая выдача награды.
type fakeStore struct {
	quests   map[int64]*Quest
	rows     map[string]*Progress
	credited map[int64]int64 // userID → всего начислено наград
	nextID   int64
}

func newFakeStore(quests ...*Quest) *fakeStore {
	s := &fakeStore{
		quests:   make(map[int64]*Quest),
		rows:     make(map[string]*Progress),
		credited: make(map[int64]int64),
	}
	for _, q := range quests {
		s.quests[q.ID] = q
	}
	return s
}

func key(userID, questID int64, periodStart time.Time) string {
	return fmt.Sprintf("%d/%d/%d", userID, questID, periodStart.Unix())
}

func (s *fakeStore) ActiveQuests(_ context.Context) ([]*Quest, error) {
	var out []*Quest
	for _, q := range s.quests {
		if q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveByAction(_ context.Context, actionType string) ([]*Quest, error) {
	var out []*Quest
	for _, q := range s.quests {
		if q.IsActive && q.ActionType == actionType {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, questID int64) (*Quest, error) {
	q, ok := s.quests[questID]
	if !ok {
		return nil, common.ErrUnknownQuest
	}
	return q, nil
}

func (s *fakeStore) GetOrCreateProgress(_ context.Context, userID, questID int64, periodStart time.Time) (*Progress, error) {
	k := key(userID, questID, periodStart)
	if row, ok := s.rows[k]; ok {
		return row, nil
	}
	s.nextID++
	row := &Progress{ID: s.nextID, UserID: userID, QuestID: questID, PeriodStart: periodStart}
	s.rows[k] = row
	return row, nil
}

func (s *fakeStore) AddProgress(_ context.Context, userID, questID int64, periodStart time.Time, amount, target int64) (*Progress, error) {
	row, ok := s.rows[key(userID, questID, periodStart)]
	if !ok || row.IsClaimed {
		return nil, nil
	}
	row.Progress += amount
	if row.Progress >= target {
		row.IsCompleted = true
	}
	return row, nil
}

func (s *fakeStore) ClaimReward(_ context.Context, userID, questID int64, periodStart time.Time, reward int64) error {
	row, ok := s.rows[key(userID, questID, periodStart)]
	if !ok || !row.IsCompleted {
		return common.ErrQuestNotCompleted
	}
	if row.IsClaimed {
		return common.ErrQuestAlreadyClaimed
	}
	row.IsClaimed = true
	s.credited[userID] += reward
	return nil
}

func (s *fakeStore) DeleteBefore(_ context.Context, period string, before time.Time) (int64, error) {
	var deleted int64
	for k, row := range s.rows {
		q, ok := s.quests[row.QuestID]
		if ok && q.Period == period && row.PeriodStart.Before(before) {
			delete(s.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func newTestService(store *fakeStore, now time.Time) *Service {
	return NewService(store, common.FixedClock{T: now}, time.UTC)
}

func dailyQuest(id, target, reward int64) *Quest {
	return &Quest{
		ID: id, Period: PeriodDaily, ActionType: ActionClick,
		TargetValue: target, Reward: reward, Title: "Разминка", IsActive: true,
	}
}

func TestRecordProgress_AccumulatesAndCompletes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionClick, 30); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if err := svc.RecordProgress(ctx, 7, ActionClick, 25); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	row := store.rows[key(7, 1, PeriodStart(PeriodDaily, now, time.UTC))]
	if row == nil {
		t.Fatal("строка прогресса не создана")
	}
	if row.Progress != 55 {
		t.Fatalf("progress = %d, ожидалось 55", row.Progress)
	}
	if !row.IsCompleted {
		t.Fatal("задание должно быть выполнено на 55/50")
	}
	if row.IsClaimed {
		t.Fatal("награда не должна быть выдана без claim")
	}
}

func TestRecordProgress_IgnoresOtherActions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionTransfer, 30); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("создано %d строк прогресса, ожидалось 0", len(store.rows))
	}
}

func TestRecordProgress_NonPositiveAmountIsNoop(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionClick, 0); err != nil {
		t.Fatalf("RecordProgress(0): %v", err)
	}
	if err := svc.RecordProgress(ctx, 7, ActionClick, -5); err != nil {
		t.Fatalf("RecordProgress(-5): %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatal("нулевой прогресс не должен создавать строк")
	}
}

func TestClaim_PaysExactlyOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionClick, 60); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	reward, err := svc.Claim(ctx, 7, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if reward != 100 {
		t.Fatalf("reward = %d, ожидалось 100", reward)
	}
	if store.credited[7] != 100 {
		t.Fatalf("начислено %d, ожидалось 100", store.credited[7])
	}

	if _, err := svc.Claim(ctx, 7, 1); err != common.ErrQuestAlreadyClaimed {
		t.Fatalf("повторный Claim: err = %v, ожидался ErrQuestAlreadyClaimed", err)
	}
	if store.credited[7] != 100 {
		t.Fatalf("повторный claim начислил ещё раз: %d", store.credited[7])
	}
}

func TestClaim_NotCompleted(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionClick, 30); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if _, err := svc.Claim(ctx, 7, 1); err != common.ErrQuestNotCompleted {
		t.Fatalf("err = %v, ожидался ErrQuestNotCompleted", err)
	}
}

func TestClaim_UnknownAndInactiveQuest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	inactive := dailyQuest(2, 50, 100)
	inactive.IsActive = false
	store := newFakeStore(inactive)
	svc := newTestService(store, now)

	if _, err := svc.Claim(ctx, 7, 99); err != common.ErrUnknownQuest {
		t.Fatalf("неизвестное задание: err = %v, ожидался ErrUnknownQuest", err)
	}
	if _, err := svc.Claim(ctx, 7, 2); err != common.ErrUnknownQuest {
		t.Fatalf("выключенное задание: err = %v, ожидался ErrUnknownQuest", err)
	}
}

// После выдачи награды прогресс заморожен до конца периода.
func TestRecordProgress_FrozenAfterClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(dailyQuest(1, 50, 100))
	svc := newTestService(store, now)

	if err := svc.RecordProgress(ctx, 7, ActionClick, 60); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if _, err := svc.Claim(ctx, 7, 1); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	if err := svc.RecordProgress(ctx, 7, ActionClick, 40); err != nil {
		t.Fatalf("RecordProgress после claim: %v", err)
	}

	row := store.rows[key(7, 1, PeriodStart(PeriodDaily, now, time.UTC))]
	if row.Progress != 60 {
		t.Fatalf("прогресс после claim вырос: %d, ожидалось 60", row.Progress)
	}
}

// Новый день = новая строка прогресса с нуля, старая не переиспользуется.
func TestRecordProgress_NewPeriodStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(dailyQuest(1, 50, 100))

	day1 := time.Date(2025, 6, 18, 23, 0, 0, 0, time.UTC)
	if err := newTestService(store, day1).RecordProgress(ctx, 7, ActionClick, 60); err != nil {
		t.Fatalf("RecordProgress день 1: %v", err)
	}

	day2 := time.Date(2025, 6, 19, 1, 0, 0, 0, time.UTC)
	if err := newTestService(store, day2).RecordProgress(ctx, 7, ActionClick, 10); err != nil {
		t.Fatalf("RecordProgress день 2: %v", err)
	}

	row1 := store.rows[key(7, 1, PeriodStart(PeriodDaily, day1, time.UTC))]
	row2 := store.rows[key(7, 1, PeriodStart(PeriodDaily, day2, time.UTC))]
	if row1 == nil || row2 == nil {
		t.Fatal("для каждого дня должна быть своя строка прогресса")
	}
	if row1.Progress != 60 || row2.Progress != 10 {
		t.Fatalf("прогресс по дням: %d и %d, ожидалось 60 и 10", row1.Progress, row2.Progress)
	}
	if row2.IsCompleted {
		t.Fatal("новый день начинается невыполненным")
	}
}

func TestResetPeriod_DeletesOnlyPastRows(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(dailyQuest(1, 50, 100))

	day1 := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	if err := newTestService(store, day1).RecordProgress(ctx, 7, ActionClick, 10); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	day2 := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, day2)
	if err := svc.RecordProgress(ctx, 7, ActionClick, 20); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	deleted, err := svc.ResetPeriod(ctx, PeriodDaily)
	if err != nil {
		t.Fatalf("ResetPeriod: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("удалено %d строк, ожидалась 1", deleted)
	}
	if store.rows[key(7, 1, PeriodStart(PeriodDaily, day2, time.UTC))] == nil {
		t.Fatal("строка текущего дня не должна удаляться")
	}
}

func TestListForPlayer_FiltersByPeriod(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

	weekly := &Quest{
		ID: 2, Period: PeriodWeekly, ActionType: ActionClick,
		TargetValue: 1000, Reward: 500, Title: "Марафон", IsActive: true,
	}
	store := newFakeStore(dailyQuest(1, 50, 100), weekly)
	svc := newTestService(store, now)

	all, err := svc.ListForPlayer(ctx, 7, "")
	if err != nil {
		t.Fatalf("ListForPlayer: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("без фильтра %d заданий, ожидалось 2", len(all))
	}

	daily, err := svc.ListForPlayer(ctx, 7, PeriodDaily)
	if err != nil {
		t.Fatalf("ListForPlayer(daily): %v", err)
	}
	if len(daily) != 1 || daily[0].Quest.ID != 1 {
		t.Fatalf("фильтр daily вернул не то: %+v", daily)
	}
}
