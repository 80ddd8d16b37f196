package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// Consultant is the pipeline surface the adapter drives.
type Consultant interface {
	HandleStart(userID, displayName string) string
	HandleMessage(ctx context.Context, userID, displayName, text string) string
	HandleStats(userID string) string
	HandleReset(userID string) string
}

// Adapter bridges Telegram long-polling to the consultation pipeline.
type Adapter struct {
	bot        *tgbotapi.BotAPI
	consultant Consultant
	logger     *log.Logger
}

// New creates a Telegram adapter and authenticates the bot token.
func New(token string, consultant Consultant, logger *log.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Printf("✅ Authorized as @%s", bot.Self.UserName)
	return &Adapter{
		bot:        bot,
		consultant: consultant,
		logger:     logger,
	}, nil
}

// Start begins long-polling for updates and blocks until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	a.logger.Println("📥 Listening for Telegram updates")

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			a.logger.Println("Telegram adapter stopped")
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(msg)
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	reply := a.consultant.HandleMessage(ctx, userID, displayName(msg.From), msg.Text)
	a.sendReply(msg.Chat.ID, reply)
}

func (a *Adapter) handleCommand(msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch msg.Command() {
	case "start":
		a.sendReply(msg.Chat.ID, a.consultant.HandleStart(userID, displayName(msg.From)))
	case "stats":
		a.sendReply(msg.Chat.ID, a.consultant.HandleStats(userID))
	case "reset":
		a.sendReply(msg.Chat.ID, a.consultant.HandleReset(userID))
	default:
		a.sendReply(msg.Chat.ID, "Unknown command. Available: /start, /stats, /reset")
	}
}

// sendReply sends text as Markdown, splitting at the Telegram length cap.
// Markdown from the LLM is not always valid, so a failed send is retried
// as plain text before giving up.
func (a *Adapter) sendReply(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				a.logger.Printf("❌ Send failed for chat %d: %v", chatID, err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}
