// Package telegram sends premium alerts and operational notices to a Telegram chat
// and answers a small set of bot commands.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/models"
)

// StatusFunc renders the current monitor status for the /status command.
type StatusFunc func() string

// chattableSender is the subset of the bot API used for outgoing messages.
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client is an alert channel backed by the Telegram Bot API.
type Client struct {
	bot            *tgbotapi.BotAPI
	out            chattableSender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient authenticates the bot token and targets chatID.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c := newClient(bot, id, maxRetries, retryDelayBase)
	c.bot = bot
	return c, nil
}

func newClient(out chattableSender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		out:            out,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// ListenForCommands polls for bot commands in a goroutine until ctx is cancelled.
// Only messages from the configured chat are answered.
func (c *Client) ListenForCommands(ctx context.Context, status StatusFunc) {
	if c.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg := update.Message
				if msg == nil || !msg.IsCommand() || msg.Chat == nil || msg.Chat.ID != c.chatID {
					continue
				}
				if reply, ok := commandReply(msg.Command(), status); ok {
					if _, err := c.out.Send(tgbotapi.NewMessage(c.chatID, reply)); err != nil {
						logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
					}
				}
			}
		}
	}()
}

func commandReply(command string, status StatusFunc) (string, bool) {
	switch command {
	case "ping":
		return "Pong", true
	case "status":
		if status == nil {
			return "", false
		}
		return status(), true
	case "help":
		return "/status - latch, NAV and last premium\n/ping - liveness check", true
	default:
		return "", false
	}
}

// deliver sends a MarkdownV2 message, retrying with a linearly growing delay.
func (c *Client) deliver(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, lastErr = c.out.Send(msg)
		if lastErr == nil {
			return nil
		}
		if attempt == c.maxRetries {
			break
		}
		logger.Debug("Telegram send attempt %d failed: %v", attempt, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("telegram: failed after %d attempts: %w", c.maxRetries, lastErr)
}

// SendError reports a skipped poll cycle. Callers send it once per failure streak.
func (c *Client) SendError(ctx context.Context, cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Poll cycle skipped* \\(%s\\)\n`%s`",
		escapeMarkdownV2(models.FailureKind(cycleErr)), escapeMarkdownV2(cycleErr.Error()))
	return c.deliver(ctx, text)
}

// SendRecovery reports the first successful poll after a failure streak.
func (c *Client) SendRecovery(ctx context.Context, failureCount int) error {
	text := fmt.Sprintf("✅ *Polling recovered* after %d skipped cycle\\(s\\)", failureCount)
	return c.deliver(ctx, text)
}

// Send delivers a premium alert.
func (c *Client) Send(ctx context.Context, alert models.Alert) error {
	return c.deliver(ctx, formatAlert(alert))
}

func (c *Client) Name() string {
	return "telegram"
}

func formatAlert(alert models.Alert) string {
	s := alert.Sample
	lines := []string{
		fmt.Sprintf("🚨 *%s premium alert*", escapeMarkdownV2(alert.FundName)),
		"",
		fmt.Sprintf("📉 Premium: *%s*", escapeMarkdownV2(fmt.Sprintf("%.2f%%", s.PremiumPct))),
		"💰 Market price: " + escapeMarkdownV2(fmt.Sprintf("₹%.2f", s.Quote.MarketPrice)),
		"🧮 Est\\. iNAV: " + escapeMarkdownV2(fmt.Sprintf("₹%.2f", s.INAV)),
		"💱 FX: " + escapeMarkdownV2(fmt.Sprintf("%.4f (prev %.4f)", s.Quote.LiveFX, s.Quote.PrevCloseFX)),
	}
	if !alert.FiredAt.IsZero() {
		lines = append(lines, "", "📅 Detected: "+escapeMarkdownV2(alert.FiredAt.Format("2006-01-02 15:04:05")))
	}
	return strings.Join(lines, "\n")
}

// escapeMarkdownV2 escapes the characters Telegram reserves in MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if strings.ContainsRune("\\_*[]()~`>#+-=|{}.!", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
