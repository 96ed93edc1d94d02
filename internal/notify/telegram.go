package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"intraday_trader/internal/helper"
	"intraday_trader/internal/models"
	"intraday_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTradesShown = 10

// Ledger is what the bot commands read.
type Ledger interface {
	GetPosition(ctx context.Context, symbol string) (models.Position, bool, error)
	ListTrades(ctx context.Context, symbol string) ([]models.Trade, error)
}

// Telegram sends events to one chat and answers /position and /trades there.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, chatID, tgbot.APIEndpoint)
}

// NewTelegramWithEndpoint points the bot at another API host, e.g. a local Bot API server.
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	b, err := tgbot.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(_ context.Context, text string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, text))
	return err
}

func (t *Telegram) Notify(ctx context.Context, e Event) {
	if err := t.Send(ctx, e.Text()); err != nil {
		logger.Error("[NOTIFY] telegram %q: %v", e.Subject, err)
	}
}

// Start long-polls for commands from the configured chat until ctx is done.
func (t *Telegram) Start(ctx context.Context, ledger Ledger, symbol string) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		defer t.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				msg := upd.Message
				if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
					continue
				}
				reply := t.handleCommand(ctx, ledger, symbol, msg.Command())
				if reply == "" {
					continue
				}
				if err := t.Send(ctx, reply); err != nil {
					logger.Error("[NOTIFY] telegram reply /%s: %v", msg.Command(), err)
				}
			}
		}
	}()
}

func (t *Telegram) handleCommand(ctx context.Context, ledger Ledger, symbol, cmd string) string {
	switch cmd {
	case "position":
		p, ok, err := ledger.GetPosition(ctx, symbol)
		if err != nil {
			return "❗️ " + err.Error()
		}
		if !ok {
			return "📭 No open position on " + symbol
		}
		return formatPosition(p)
	case "trades":
		trades, err := ledger.ListTrades(ctx, symbol)
		if err != nil {
			return "❗️ " + err.Error()
		}
		return formatTrades(symbol, trades)
	}
	return ""
}

func formatPosition(p models.Position) string {
	side := "LONG"
	if p.IsShort() {
		side = "SHORT"
	}
	return fmt.Sprintf("📊 %s %s [%s] qty=%d entry=%s ltp=%s pnl=%s",
		p.Exchange, p.Symbol, side, p.AbsQuantity(),
		helper.FormatPrice(p.EntryPrice), helper.FormatPrice(p.LastTradedPrice), helper.FormatPrice(p.UnrealizedPnL()))
}

func formatTrades(symbol string, trades []models.Trade) string {
	if len(trades) == 0 {
		return "📭 No closed trades on " + symbol
	}
	var (
		b     strings.Builder
		total float64
	)
	for _, tr := range trades {
		total += tr.PnL
	}
	fmt.Fprintf(&b, "📒 %s trades (%d):", symbol, len(trades))
	if len(trades) > maxTradesShown {
		trades = trades[len(trades)-maxTradesShown:]
	}
	for _, tr := range trades {
		fmt.Fprintf(&b, "\n%s qty=%d %s -> %s pnl=%s",
			tr.ExitTimestamp.Format("01-02 15:04"), tr.Quantity,
			helper.FormatPrice(tr.EntryPrice), helper.FormatPrice(tr.ExitPrice), helper.FormatPrice(tr.PnL))
	}
	fmt.Fprintf(&b, "\ntotal pnl=%s", helper.FormatPrice(total))
	return b.String()
}
