package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
)

// StarsProvider выставляет счета в Telegram Stars через Bot API.
// Валюта XTR не требует платёжного токена: счёт создаётся напрямую.
type StarsProvider struct {
	bot     *telego.Bot
	timeout time.Duration
}

// NewStarsProvider создаёт провайдера поверх Bot API.
func NewStarsProvider(token string, timeout time.Duration) (*StarsProvider, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("инициализация Bot API: %w", err)
	}
	return &StarsProvider{bot: bot, timeout: timeout}, nil
}

// CreateInvoiceLink создаёт ссылку на оплату пачки кристаллов.
// Вызов сетевой и ограничен таймаутом: он не должен держать ничего заблокированным.
func (p *StarsProvider) CreateInvoiceLink(ctx context.Context, payload string, item *ShopItem) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	link, err := p.bot.CreateInvoiceLink(ctx, &telego.CreateInvoiceLinkParams{
		Title:       fmt.Sprintf("%d кристаллов", item.Crystals),
		Description: fmt.Sprintf("Пачка из %d кристаллов", item.Crystals),
		Payload:     payload,
		Currency:    "XTR",
		Prices: []telego.LabeledPrice{
			{Label: "XTR", Amount: item.Stars},
		},
	})
	if err != nil {
		return "", fmt.Errorf("создание счёта: %w", err)
	}
	if link == nil || *link == "" {
		return "", errors.New("Bot API вернул пустую ссылку на счёт")
	}
	return *link, nil
}
