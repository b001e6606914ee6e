package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than 4096 characters.
const telegramLimit = 4000

type TelegramGateway struct {
	Bot        *tgbotapi.BotAPI
	Dispatcher *Dispatcher
	ctx        context.Context
}

func NewTelegramGateway(ctx context.Context, token string, d *Dispatcher) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:        bot,
		Dispatcher: d,
		ctx:        ctx,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
		tg.Dispatcher.Handle(tg.ctx, chatID, update.Message.Text, ReplyTo(tg, chatID))
	}
	return nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	// Generated content is free-form markdown, which Telegram's parser
	// rejects often enough that messages go out as plain text.
	for _, part := range chunk(text, telegramLimit) {
		if _, err := tg.Bot.Send(tgbotapi.NewMessage(id, part)); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TelegramGateway) SendFile(chatID string, name string, data []byte) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: name, Bytes: data})
	_, err = tg.Bot.Send(doc)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chat ID: %s", chatID)
	}
	return id, nil
}
