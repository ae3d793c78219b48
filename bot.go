package main

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/scenestudio/scene-studio-bot/scene"
	"github.com/scenestudio/scene-studio-bot/storage"
)

type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Bot struct {
	tg      BotAPI
	state   BotState
	store   storage.HistoryStore
	handler *SceneHandler
}

// NewBot creates the bot. The store may be nil: history and per-user API
// keys are then unavailable and everything else keeps working.
func NewBot(tg BotAPI, store storage.HistoryStore) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		handler: NewSceneHandler(store),
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate dispatches one Telegram update. Called from its own
// goroutine per update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic in update handler")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	session := b.state.getUserSession(message.From.ID, b.tg)

	if len(message.Photo) > 0 {
		b.handlePhoto(session, message)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, session, message)
		return
	}

	if message.Text != "" {
		b.handleText(session, message.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		session.reply(startText)
	case "help":
		session.reply(helpText)
	case "analyze":
		b.handler.HandleAnalyze(ctx, session)
	case "generate":
		b.handler.HandleGenerate(ctx, session, "")
	case "again":
		lastPrompt := session.getLastPrompt()
		if lastPrompt == "" {
			session.reply(noLastPromptText)
			return
		}
		b.handler.HandleGenerate(ctx, session, lastPrompt)
	case "persona":
		session.replyWithKeyboard(personaPromptText, makePersonaKeyboard())
	case "adjust":
		if session.toggleAdjustments() {
			session.reply(adjustOnText)
		} else {
			session.reply(adjustOffText)
		}
	case "apikey":
		session.setAwaitingAPIKey(true)
		session.reply(apiKeyPromptText)
	case "delkey":
		if b.store != nil {
			if err := b.store.DeleteAPIKey(session.userID); err != nil {
				log.Warn().Err(err).Int64("userId", session.userID).Msg("failed to delete api key")
			}
		}
		session.reply(apiKeyDeletedText)
	case "clearcontext":
		session.setProductContext("")
		session.reply(contextClearedText)
	case "clearprompt":
		session.setPromptBuffer("")
		session.reply(promptClearedText)
	case "reset":
		session.clearImage()
		session.reply(imageClearedText)
	default:
		session.reply(helpText)
	}
}

// handlePhoto installs an uploaded product photo: download, fingerprint,
// session reset and a history lookup for a previously corrected
// description.
func (b *Bot) handlePhoto(session *UserSession, message *tgbotapi.Message) {
	// message.Photo lists sizes in ascending order; take the largest.
	largest := message.Photo[len(message.Photo)-1]
	data, err := downloadFileID(b.tg.GetFileDirectURL, largest.FileID)
	if err != nil {
		log.Error().Err(err).Msg("failed to download photo")
		session.reply("Could not download the photo, please try again.")
		return
	}

	fingerprint := session.setImage(data, "image/jpeg")

	if caption := strings.TrimSpace(message.Caption); caption != "" {
		session.setProductContext(caption)
	}

	b.preloadHistory(session, fingerprint)

	session.replyWithKeyboard(personaPromptText, makePersonaKeyboard())
}

// preloadHistory loads a saved description for the fingerprint into the
// product context field. Best-effort; absence and errors both mean "no
// history".
func (b *Bot) preloadHistory(session *UserSession, fingerprint string) {
	if b.store == nil {
		return
	}
	desc, err := b.store.GetDescription(session.userID, fingerprint)
	if err != nil {
		log.Warn().Err(err).Int64("userId", session.userID).Msg("failed to fetch history")
		return
	}
	if desc == nil {
		return
	}
	session.setProductContext(desc.English)
	session.reply(historyLoadedText, desc.English)
}

// handleText routes a plain text message by session state: an awaited API
// key, a correction, a generation prompt (once scenarios exist) or the
// product context.
func (b *Bot) handleText(session *UserSession, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if session.isAwaitingAPIKey() {
		session.setAwaitingAPIKey(false)
		if b.store == nil {
			session.reply(videoStoreText)
			return
		}
		if err := b.store.SetAPIKey(session.userID, text); err != nil {
			log.Error().Err(err).Int64("userId", session.userID).Msg("failed to store api key")
			session.reply("Could not store the API key, please try again.")
			return
		}
		session.reply(apiKeySavedText)
		return
	}

	if session.inCorrectionMode() {
		session.setProductContext(text)
		session.reply(correctionSetText)
		return
	}

	if session.hasScenarios() {
		session.setPromptBuffer(text)
		session.reply(promptSetText)
		return
	}

	if session.hasImage() {
		session.setProductContext(text)
		session.reply(contextSetText)
		return
	}

	session.reply(noImageText)
}

func (b *Bot) handleCallback(ctx context.Context, update tgbotapi.Update) {
	query := update.CallbackQuery
	session := b.state.getUserSession(query.From.ID, b.tg)

	// Acknowledge so the client stops showing a spinner.
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback query")
	}

	action, arg, found := strings.Cut(query.Data, ":")
	if !found {
		return
	}

	switch action {
	case "persona":
		persona := scene.ParsePersona(arg)
		session.setPersona(persona)
		session.reply(personaSelectedText, persona.Label())
	case "scenario":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			return
		}
		b.handler.HandleSelect(session, idx)
	case "feedback":
		b.handler.HandleFeedback(session, arg == "yes")
	}
}
