// Package quests управляет периодическими заданиями: ежедневными и
// еженедельными целями с накопительным прогрессом и разовой наградой.
// models.go описывает шаблоны заданий и прогресс игроков.
package quests

import "time"

// Виды периодов заданий
const (
	PeriodDaily  = "daily"  // Сбрасывается каждый календарный день
	PeriodWeekly = "weekly" // Сбрасывается каждый понедельник
)

// Отслеживаемые действия игрока
const (
	ActionClick      = "click"       // Клики по алмазу
	ActionEarn       = "earn"        // Заработанные кристаллы
	ActionTransfer   = "transfer"    // Переведённые кристаллы
	ActionBuyUpgrade = "buy_upgrade" // Купленные улучшения
)

// Quest — шаблон задания, настраивается админкой (внешний слой).
// Для ядра шаблон неизменяем.
type Quest struct {
	ID          int64     `db:"id"`
	Period      string    `db:"period"`       // daily | weekly
	ActionType  string    `db:"action_type"`  // Какое действие считаем
	TargetValue int64     `db:"target_value"` // Сколько нужно набрать
	Reward      int64     `db:"reward"`       // Награда в кристаллах
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

// Progress — прогресс игрока по заданию в конкретном периоде.
// Жизненный цикл строго вперёд: Open → Completed → Claimed.
// После claim строка замораживается, прогресс больше не растёт.
// Новый период = новая строка с новым period_start, старая не переиспользуется.
type Progress struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	QuestID     int64     `db:"quest_id"`
	PeriodStart time.Time `db:"period_start"` // Начало периода (дата)
	Progress    int64     `db:"progress"`     // Монотонно растёт внутри периода
	IsCompleted bool      `db:"is_completed"` // progress >= target
	IsClaimed   bool      `db:"is_claimed"`   // Награда выдана (однажды true — навсегда true)
	UpdatedAt   time.Time `db:"updated_at"`
}

// PlayerQuest — задание вместе с прогрессом игрока, для выдачи списком.
type PlayerQuest struct {
	Quest       *Quest
	Progress    int64
	IsCompleted bool
	IsClaimed   bool
}
