package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"meal-shopper/internal/config"
	"meal-shopper/internal/logx"
	"meal-shopper/internal/metrics"
	"meal-shopper/internal/session"
	"meal-shopper/internal/workflow"
)

// WebhookPath is where the bot receives updates on the API server.
const WebhookPath = "/telegram/webhook"

// Sender is the part of tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Workflow is the part of workflow.Controller the bot drives.
type Workflow interface {
	Create(ctx context.Context, preferences string, days *int) (workflow.Created, error)
	Inspect(ctx context.Context, id string) (*session.Session, error)
}

// UsageReader provides the numbers for the admin /metrics report.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot answers Telegram messages: free text becomes a meal plan session,
// /session shows the state of one and /metrics is an admin report.
type Bot struct {
	api      Sender
	wf       Workflow
	usage    UsageReader
	cfg      *config.Config
	timeout  time.Duration
	inflight sync.WaitGroup
}

// NewBot authorizes against the Telegram API and registers the webhook.
func NewBot(cfg *config.Config, wf Workflow, usage UsageReader) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logx.Info().Str("account", api.Self.UserName).Msg("telegram bot authorized")

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook for %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		logx.Info().Str("description", resp.Description).Msg("telegram webhook set")
	}

	return newBot(api, cfg, wf, usage), nil
}

func newBot(api Sender, cfg *config.Config, wf Workflow, usage UsageReader) *Bot {
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Bot{api: api, wf: wf, usage: usage, cfg: cfg, timeout: timeout + 10*time.Second}
}

// ServeHTTP handles webhook updates. Messages are processed in the background
// so Telegram gets its 200 right away.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logx.Warn().Err(err).Msg("failed to parse telegram update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		logx.Warn().Int64("user_id", msg.From.ID).Str("username", msg.From.UserName).Msg("unauthorized telegram access attempt")
		return
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.processMessage(msg)
	}()
}

// Wait blocks until all messages being processed are answered.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID) || (b.cfg.AdminTelegramID != 0 && userID == b.cfg.AdminTelegramID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "metrics":
		b.handleMetrics(ctx, msg)
	case "session":
		b.handleSession(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	default:
		b.handlePlan(ctx, msg)
	}
}

const helpText = "🛒 *Meal Shopper*\n\n" +
	"Send me your preferences (e.g. _3 high protein dinners_) and I will plan meals and a shopping list.\n\n" +
	"`/session <id>` shows the price decision for a plan."

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) {
	preferences := strings.TrimSpace(msg.Text)
	if preferences == "" {
		b.reply(msg.Chat.ID, helpText)
		return
	}

	status, err := b.api.Send(markdown(msg.Chat.ID, "🧑‍🍳 *Thinking...*\n(Generating your meal plan)"))
	if err != nil {
		logx.Error().Err(err).Msg("failed to send initial reply")
		return
	}

	created, err := b.wf.Create(ctx, preferences, nil)
	if err != nil {
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		b.edit(msg.Chat.ID, status.MessageID, fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr))
		return
	}

	planText, shoppingText := formatPlan(created)
	b.edit(msg.Chat.ID, status.MessageID, planText)
	b.reply(msg.Chat.ID, shoppingText)
}

func (b *Bot) handleSession(ctx context.Context, chatID int64, id string) {
	if id == "" {
		b.reply(chatID, "Usage: `/session <id>`")
		return
	}
	s, err := b.wf.Inspect(ctx, id)
	if err != nil {
		if errors.Is(err, workflow.ErrSessionNotFound) {
			b.reply(chatID, "🤷 Session not found.")
			return
		}
		logx.Error().Err(err).Str("session_id", id).Msg("failed to inspect session")
		b.reply(chatID, "❌ Error loading session.")
		return
	}
	b.reply(chatID, formatSession(s))
}

func (b *Bot) handleMetrics(ctx context.Context, msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	if b.usage == nil {
		b.reply(msg.Chat.ID, "Metrics are not enabled.")
		return
	}

	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		logx.Error().Err(err).Msg("failed to fetch usage metrics")
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatUsage(usage, metrics.GetSysHealth(dataDir(b.cfg.DatabasePath))))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(chatID, text)); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send telegram message")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		logx.Error().Err(err).Int64("chat_id", chatID).Msg("failed to edit telegram message")
	}
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}
