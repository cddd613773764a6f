package telegram

import (
	"context"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bodyshape-coach/internal/conversation"
)

// maxMessageLen is Telegram's limit for one text message, in characters.
const maxMessageLen = 4096

// Handler produces the replies to one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg conversation.Message) []conversation.Reply
}

type Bot struct {
	api *tgbotapi.BotAPI
	s   sender
	h   Handler
	log *zap.SugaredLogger
}

func New(botToken string, h Handler, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Infow("authorized on telegram", "bot", api.Self.UserName)
	return &Bot{
		api: api,
		s:   botAPISender{api: api},
		h:   h,
		log: log,
	}, nil
}

// Start long-polls for updates until ctx is cancelled. Updates are handled
// one at a time.
func (b *Bot) Start(ctx context.Context) {
	if _, err := b.s.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.log.Warnw("failed to delete webhook before polling", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate answers a text message. Other update kinds are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		b.log.Debugw("update without text message dropped", "update_id", update.UpdateID)
		return
	}
	b.log.Debugw("incoming message", "user_id", msg.From.ID, "chat_id", msg.Chat.ID, "len", len(msg.Text))

	if _, err := b.s.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debugw("chat action failed", "chat_id", msg.Chat.ID, "error", err)
	}

	replies := b.h.Handle(ctx, conversation.Message{UserID: msg.From.ID, Text: msg.Text})
	for _, r := range replies {
		b.sendReply(msg.Chat.ID, r)
	}
}

func (b *Bot) sendReply(chatID int64, r conversation.Reply) {
	for _, part := range splitText(r.Text, maxMessageLen) {
		b.sendMessage(chatID, part, r.Markdown)
	}
}

// sendMessage retries without parse mode when Telegram rejects the markup.
func (b *Bot) sendMessage(chatID int64, text string, markdown bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	_, err := b.s.Send(msg)
	if err != nil && markdown {
		b.log.Warnw("markdown send failed, retrying as plain text", "chat_id", chatID, "error", err)
		msg.ParseMode = ""
		_, err = b.s.Send(msg)
	}
	if err != nil {
		b.log.Errorw("failed to send message", "chat_id", chatID, "error", err)
	}
}

// splitText cuts s into pieces of at most limit characters, preferring to
// break after a newline.
func splitText(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var parts []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
