package main

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxLen stays under Telegram's 4096 character message limit with
// room for the <pre> wrapper.
const telegramMaxLen = 4000

// screenTailLines is how much of the final screen goes into a notification.
const screenTailLines = 30

// SessionSummary describes a finished session.
type SessionSummary struct {
	ID         string
	Command    []string
	ExitCode   int
	Duration   time.Duration
	Transcript string
	Screen     string
	Err        error
}

// Notifier reports finished sessions somewhere outside the terminal.
type Notifier interface {
	Notify(summary SessionSummary) error
}

// messageSender is the part of tgbotapi.BotAPI used for notifications.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends session summaries to a fixed set of chats.
type TelegramNotifier struct {
	bot    messageSender
	chats  []int64
	logger *slog.Logger
}

// NewTelegramNotifier connects to the bot API with token.
func NewTelegramNotifier(token string, chats []int64, logger *slog.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram notify: no bot_token in config")
	}
	if len(chats) == 0 {
		return nil, errors.New("telegram notify: no notify_chats in config")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram notify: connect: %w", err)
	}
	logger.Debug("telegram bot connected", "bot", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chats: chats, logger: logger}, nil
}

// Notify sends the summary to every chat. All chats are attempted; the
// first error is returned.
func (t *TelegramNotifier) Notify(summary SessionSummary) error {
	var firstErr error
	for _, chatID := range t.chats {
		for _, text := range formatSummary(summary) {
			msg := tgbotapi.NewMessage(chatID, text)
			msg.ParseMode = "HTML"
			if _, err := t.bot.Send(msg); err != nil {
				t.logger.Warn("telegram send failed", "chat", chatID, "error", err)
				if firstErr == nil {
					firstErr = fmt.Errorf("telegram send to %d: %w", chatID, err)
				}
				break
			}
		}
	}
	return firstErr
}

// formatSummary renders summary as one or more HTML messages. The header
// goes in the first message; the screen tail follows in <pre> blocks.
func formatSummary(s SessionSummary) []string {
	var b strings.Builder

	status := "✅"
	if s.ExitCode != 0 || s.Err != nil {
		status = "❌"
	}
	fmt.Fprintf(&b, "%s <b>Session ended</b>\n\n", status)
	fmt.Fprintf(&b, "Command: <code>%s</code>\n", html.EscapeString(strings.Join(s.Command, " ")))
	fmt.Fprintf(&b, "Exit code: %d\n", s.ExitCode)
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration.Round(time.Second))
	if s.Transcript != "" {
		fmt.Fprintf(&b, "Transcript: <code>%s</code>\n", html.EscapeString(s.Transcript))
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "Error: %s\n", html.EscapeString(s.Err.Error()))
	}
	if s.ID != "" {
		fmt.Fprintf(&b, "Session: <code>%s</code>\n", s.ID)
	}

	messages := []string{b.String()}

	screen := strings.TrimSpace(s.Screen)
	if screen == "" {
		return messages
	}
	rawMaxLen := telegramMaxLen - len("<pre></pre>")
	for _, part := range splitAtSafeBoundary(html.EscapeString(screen), rawMaxLen) {
		messages = append(messages, "<pre>"+part+"</pre>")
	}
	return messages
}

// splitAtSafeBoundary splits s into chunks of at most maxLen bytes without
// cutting through an HTML entity.
func splitAtSafeBoundary(s string, maxLen int) []string {
	var parts []string
	for len(s) > maxLen {
		end := maxLen
		// An entity is at most 10 bytes here; look back that far for an
		// unterminated '&'.
		for j := end - 1; j >= 0 && j >= end-10; j-- {
			if s[j] == ';' {
				break
			}
			if s[j] == '&' {
				end = j
				break
			}
		}
		parts = append(parts, s[:end])
		s = s[end:]
	}
	if len(s) > 0 {
		parts = append(parts, s)
	}
	return parts
}
