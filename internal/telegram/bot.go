// Package telegram provides a Telegram bot frontend for Testimator.
//
// Flow:
//   - /interview <job title> starts a mock interview for the chat.
//   - Plain messages are interview turns.
//   - /stop abandons the interview.
//
// Each Telegram chat maps to one interview session, keyed "tg-<chatID>".
// Uses long polling — no public URL or webhook needed.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/interview"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
)

// Bot is the Telegram frontend for Testimator.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *interview.Engine

	// interviews maps Telegram chatID -> the job title being interviewed
	// for. Presence in the map means an interview is active in that chat.
	chatMu     sync.RWMutex
	interviews map[int64]string
}

// NewBot creates a new Telegram bot.
func NewBot(token string, eng *interview.Engine) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}

	log.Printf("Telegram bot authorized as @%s", api.Self.UserName)

	return &Bot{
		api:        api,
		engine:     eng,
		interviews: make(map[int64]string),
	}, nil
}

// Run starts the long-polling loop. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	log.Println("Telegram bot listening for messages...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				go b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// handleMessage routes incoming messages to the appropriate handler.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	chatID := msg.Chat.ID

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, msg.MessageID, text)
		return
	}

	b.handleTurn(ctx, chatID, msg.MessageID, text)
}

// handleCommand processes slash commands.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, replyTo int, text string) {
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	// Strip @botname suffix from commands (e.g. /stop@mybot → /stop).
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start", "/help":
		b.sendHelp(chatID, replyTo)

	case "/interview":
		jobTitle := strings.TrimSpace(strings.TrimPrefix(text, parts[0]))
		if jobTitle == "" {
			b.sendReply(chatID, replyTo, "Usage: /interview <job title>\nExample: /interview Backend Engineer")
			return
		}
		b.startInterview(ctx, chatID, replyTo, jobTitle)

	case "/stop":
		b.handleStop(chatID, replyTo)

	default:
		b.sendReply(chatID, replyTo, fmt.Sprintf("Unknown command %s. Try /help", cmd))
	}
}

// startInterview begins a fresh interview for the chat. Any interview
// already running in the chat is discarded first.
func (b *Bot) startInterview(ctx context.Context, chatID int64, replyTo int, jobTitle string) {
	key := sessionKey(chatID)
	b.engine.Reset(key)

	b.chatMu.Lock()
	b.interviews[chatID] = jobTitle
	b.chatMu.Unlock()

	b.sendChatAction(chatID)

	ex, err := b.engine.Converse(ctx, key, jobTitle, session.StartSentinel)
	if err != nil {
		log.Printf("Telegram: failed to start interview for chat %d: %v", chatID, err)
		b.sendReply(chatID, replyTo, "Sorry, I couldn't start the interview. Please try again.")
		return
	}

	b.sendReply(chatID, replyTo, ex.Reply)
}

// handleTurn forwards a plain message to the active interview.
func (b *Bot) handleTurn(ctx context.Context, chatID int64, replyTo int, text string) {
	b.chatMu.RLock()
	jobTitle, active := b.interviews[chatID]
	b.chatMu.RUnlock()

	if !active {
		b.sendReply(chatID, replyTo, "No interview in progress. Start one with /interview <job title>")
		return
	}

	b.sendChatAction(chatID)

	ex, err := b.engine.Converse(ctx, sessionKey(chatID), jobTitle, text)
	if err != nil {
		log.Printf("Telegram: turn failed for chat %d: %v", chatID, err)
		b.sendReply(chatID, replyTo, "Sorry, something went wrong. Your last message was not lost, send it again.")
		return
	}

	b.sendReply(chatID, replyTo, ex.Reply)

	if ex.Stage == session.StageComplete {
		b.chatMu.Lock()
		delete(b.interviews, chatID)
		b.chatMu.Unlock()
		b.sendReply(chatID, replyTo, "Interview complete. Start another with /interview <job title>")
	}
}

func (b *Bot) handleStop(chatID int64, replyTo int) {
	b.chatMu.Lock()
	_, active := b.interviews[chatID]
	delete(b.interviews, chatID)
	b.chatMu.Unlock()

	if !active {
		b.sendReply(chatID, replyTo, "No interview in progress.")
		return
	}

	b.engine.Reset(sessionKey(chatID))
	b.sendReply(chatID, replyTo, "Interview stopped.")
}

// --- Helpers ---

func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

func (b *Bot) sendHelp(chatID int64, replyTo int) {
	b.sendReply(chatID, replyTo, ""+
		"Testimator — AI mock interviewer.\n\n"+
		"/interview <job title> — Start a mock interview\n"+
		"/stop — Abandon the current interview\n"+
		"/help — Show this message\n\n"+
		"During an interview, just answer the questions. "+
		"You'll get structured feedback at the end.")
}

// sendChatAction sends a "typing" indicator to the chat.
func (b *Bot) sendChatAction(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.api.Send(action)
}

// sendReply sends a plain-text message as a reply. Model output is sent
// verbatim, so no parse mode is set.
func (b *Bot) sendReply(chatID int64, replyTo int, text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Telegram: failed to send message: %v", err)
	}
}
