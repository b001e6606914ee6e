package gateway

import (
	"bytes"
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

const discordLimit = 2000

type DiscordGateway struct {
	Session    *discordgo.Session
	Dispatcher *Dispatcher
	ctx        context.Context
	done       chan struct{}
}

func NewDiscordGateway(ctx context.Context, token string, d *Dispatcher) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return &DiscordGateway{
		Session:    s,
		Dispatcher: d,
		ctx:        ctx,
		done:       make(chan struct{}),
	}, nil
}

// Start connects and blocks until Stop. Each channel is its own chat.
func (dg *DiscordGateway) Start() error {
	dg.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.Content == "" {
			return
		}
		log.Printf("[%s] %s", m.Author.Username, m.Content)
		dg.Dispatcher.Handle(dg.ctx, m.ChannelID, m.Content, ReplyTo(dg, m.ChannelID))
	})

	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Printf("Connected to Discord as %s", dg.Session.State.User.Username)

	<-dg.done
	return nil
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	for _, part := range chunk(text, discordLimit) {
		if _, err := dg.Session.ChannelMessageSend(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) SendFile(chatID string, name string, data []byte) error {
	_, err := dg.Session.ChannelFileSend(chatID, name, bytes.NewReader(data))
	return err
}

func (dg *DiscordGateway) Stop() error {
	select {
	case <-dg.done:
	default:
		close(dg.done)
	}
	return dg.Session.Close()
}
