// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	// Токен бота нужен ядру только для выставления счетов в Telegram Stars.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"clicker"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"clicker_dimond"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Часовой пояс для границ периодов заданий (полночь дня, понедельник недели).
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Energy ---
	EnergyRegenPerSecond int `envconfig:"ENERGY_REGEN_PER_SECOND" default:"1"`
	EnergyDefaultMax     int `envconfig:"ENERGY_DEFAULT_MAX" default:"100"`
	// max_energy = MAX_ENERGY_BASE + уровень улучшения maxEnergy * MAX_ENERGY_PER_LEVEL
	MaxEnergyBase     int `envconfig:"MAX_ENERGY_BASE" default:"100"`
	MaxEnergyPerLevel int `envconfig:"MAX_ENERGY_PER_LEVEL" default:"25"`

	// --- Clicker ---
	// Базовая стоимость одного клика в кристаллах (без улучшений).
	ClickBaseValue int64 `envconfig:"CLICK_BASE_VALUE" default:"1"`

	// --- Leaderboard ---
	LeaderboardLimit int `envconfig:"LEADERBOARD_LIMIT" default:"50"`

	// --- Payments ---
	// Таймаут обращения к платёжному провайдеру (Telegram Bot API).
	PaymentProviderTimeout time.Duration `envconfig:"PAYMENT_PROVIDER_TIMEOUT" default:"10s"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.EnergyRegenPerSecond <= 0 {
		return fmt.Errorf("ENERGY_REGEN_PER_SECOND должен быть > 0")
	}
	if c.EnergyDefaultMax <= 0 || c.MaxEnergyBase <= 0 {
		return fmt.Errorf("некорректные настройки энергии")
	}
	if c.ClickBaseValue <= 0 {
		return fmt.Errorf("CLICK_BASE_VALUE должен быть > 0")
	}
	if c.PaymentProviderTimeout <= 0 {
		return fmt.Errorf("PAYMENT_PROVIDER_TIMEOUT должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
