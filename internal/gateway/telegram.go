package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramGateway drives the pipeline from Telegram chats. Sensitive plans
// are confirmed inline: the gateway asks in the chat and treats the next
// message from that chat as the answer.
type TelegramGateway struct {
	Bot      *tgbotapi.BotAPI
	Pipeline Handler

	mu      sync.Mutex
	pending map[string]chan string
}

func NewTelegramGateway(token string, pipeline Handler) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:      bot,
		Pipeline: pipeline,
		pending:  make(map[string]chan string),
	}, nil
}

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			chatID := fmt.Sprintf("%d", update.Message.Chat.ID)
			text := update.Message.Text
			log.Printf("[%s] %s", update.Message.From.UserName, text)

			// A chat awaiting confirmation consumes this message as the
			// answer instead of starting a new pipeline run.
			if tg.feedPending(chatID, text) {
				continue
			}

			go func() {
				response := tg.Pipeline.Handle(ctx, text, tg.confirm(chatID))
				if err := tg.Send(chatID, response); err != nil {
					log.Printf("Error sending reply: %v", err)
				}
			}()
		}
	}
}

func (tg *TelegramGateway) feedPending(chatID, text string) bool {
	tg.mu.Lock()
	ch, waiting := tg.pending[chatID]
	tg.mu.Unlock()
	if !waiting {
		return false
	}
	select {
	case ch <- text:
	default:
	}
	return true
}

func (tg *TelegramGateway) confirm(chatID string) func(ctx context.Context, prompt string) (bool, error) {
	return func(ctx context.Context, prompt string) (bool, error) {
		ch := make(chan string, 1)
		tg.mu.Lock()
		tg.pending[chatID] = ch
		tg.mu.Unlock()
		defer func() {
			tg.mu.Lock()
			delete(tg.pending, chatID)
			tg.mu.Unlock()
		}()

		if err := tg.Send(chatID, prompt+" Reply 'yes' to proceed."); err != nil {
			return false, err
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(60 * time.Second):
			return false, fmt.Errorf("confirmation timed out")
		case answer := <-ch:
			answer = strings.ToLower(strings.TrimSpace(answer))
			return answer == "yes" || answer == "y", nil
		}
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := int64(0)
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(id, text)
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
