package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway mirrors the Telegram gateway for Discord channels.
type DiscordGateway struct {
	Session  *discordgo.Session
	Pipeline Handler

	mu      sync.Mutex
	pending map[string]chan string
	ctx     context.Context
}

func NewDiscordGateway(token string, pipeline Handler) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	return &DiscordGateway{
		Session:  session,
		Pipeline: pipeline,
		pending:  make(map[string]chan string),
	}, nil
}

func (dg *DiscordGateway) Start(ctx context.Context) error {
	dg.ctx = ctx
	dg.Session.AddHandler(dg.onMessage)
	dg.Session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	if err := dg.Session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	log.Printf("Discord gateway connected as %s", dg.Session.State.User.Username)

	<-ctx.Done()
	return ctx.Err()
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	if dg.feedPending(m.ChannelID, m.Content) {
		return
	}

	go func() {
		response := dg.Pipeline.Handle(dg.ctx, m.Content, dg.confirm(m.ChannelID))
		if err := dg.Send(m.ChannelID, response); err != nil {
			log.Printf("Error sending reply: %v", err)
		}
	}()
}

func (dg *DiscordGateway) feedPending(channelID, text string) bool {
	dg.mu.Lock()
	ch, waiting := dg.pending[channelID]
	dg.mu.Unlock()
	if !waiting {
		return false
	}
	select {
	case ch <- text:
	default:
	}
	return true
}

func (dg *DiscordGateway) confirm(channelID string) func(ctx context.Context, prompt string) (bool, error) {
	return func(ctx context.Context, prompt string) (bool, error) {
		ch := make(chan string, 1)
		dg.mu.Lock()
		dg.pending[channelID] = ch
		dg.mu.Unlock()
		defer func() {
			dg.mu.Lock()
			delete(dg.pending, channelID)
			dg.mu.Unlock()
		}()

		if err := dg.Send(channelID, prompt+" Reply 'yes' to proceed."); err != nil {
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

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
