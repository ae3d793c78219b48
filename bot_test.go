package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenestudio/scene-studio-bot/scene"
	"github.com/scenestudio/scene-studio-bot/storage"
)

type fakeBotAPI struct {
	fakeSender
	requests []tgbotapi.Chattable
	fileURL  func(fileID string) string
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBotAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL(fileID), nil
}

func newTestBot(store storage.HistoryStore, analyzer *fakeAnalyzer, generator *fakeGenerator) (*Bot, *fakeBotAPI) {
	api := &fakeBotAPI{}
	b := &Bot{
		tg:      api,
		store:   store,
		handler: newTestHandler(store, analyzer, generator),
	}
	b.state = b.NewBotState()
	return b, api
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Text: text}
}

func commandMessage(cmd string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 1},
		Text:     "/" + cmd,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 1},
		Data: data,
	}}
}

func TestHandleTextWithoutImage(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("hello")})

	assert.Contains(t, api.texts(), formatReplyText(noImageText))
}

func TestHandleTextSetsProductContext(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("  a ceramic teapot  ")})

	_, _, productContext, _, _, _, _ := session.analyzeSnapshot()
	assert.Equal(t, "a ceramic teapot", productContext)
	assert.Contains(t, api.texts(), formatReplyText(contextSetText))
}

func TestHandleTextSetsPromptAfterAnalysis(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")
	session.setAnalysis(testAnalysis())

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("my own prompt")})

	prompt, _, _, _ := session.generateSnapshot()
	assert.Equal(t, "my own prompt", prompt)
	assert.Contains(t, api.texts(), formatReplyText(promptSetText))
}

func TestHandleTextStoresAwaitedAPIKey(t *testing.T) {
	store := newFakeStore()
	b, api := newTestBot(store, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setAwaitingAPIKey(true)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("AIza-user-key")})

	key, err := store.GetAPIKey(1)
	require.NoError(t, err)
	assert.Equal(t, "AIza-user-key", key)
	assert.False(t, session.isAwaitingAPIKey())
	assert.Contains(t, api.texts(), formatReplyText(apiKeySavedText))
}

func TestHandleTextCorrectionMode(t *testing.T) {
	b, api := newTestBot(newFakeStore(), &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")
	session.setAnalysis(testAnalysis())
	require.True(t, session.enterCorrectionMode())

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("actually a blue mug")})

	_, _, productContext, _, _, correction, _ := session.analyzeSnapshot()
	assert.Equal(t, "actually a blue mug", productContext)
	assert.True(t, correction)
	assert.Contains(t, api.texts(), formatReplyText(correctionSetText))
}

func TestPersonaCallback(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), callbackUpdate("persona:videographer"))

	session := b.state.getUserSession(1, api)
	assert.Equal(t, scene.PersonaVideographer, session.getPersona())
	// The callback query is acknowledged.
	require.Len(t, api.requests, 1)
	assert.Contains(t, api.texts(), formatReplyText(personaSelectedText, scene.PersonaVideographer.Label()))
}

func TestScenarioCallback(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")
	session.setAnalysis(testAnalysis())

	b.HandleUpdate(context.Background(), callbackUpdate("scenario:2"))

	prompt, _, _, _ := session.generateSnapshot()
	assert.Equal(t, testAnalysis().Scenarios[2].English, prompt)
}

func TestMalformedCallbackIgnored(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), callbackUpdate("no-separator"))
	b.HandleUpdate(context.Background(), callbackUpdate("scenario:nope"))

	assert.Empty(t, api.texts())
}

func TestAdjustCommandToggles(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("adjust")})
	_, _, _, _, adjustments, _, _ := session.analyzeSnapshot()
	assert.True(t, adjustments)
	assert.Contains(t, api.texts(), formatReplyText(adjustOnText))

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("adjust")})
	_, _, _, _, adjustments, _, _ = session.analyzeSnapshot()
	assert.False(t, adjustments)
	assert.Contains(t, api.texts(), formatReplyText(adjustOffText))
}

func TestResetCommandClearsSession(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")
	session.setAnalysis(testAnalysis())

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("reset")})

	assert.False(t, session.hasImage())
	assert.False(t, session.hasScenarios())
	assert.Nil(t, session.getArtifact())
	assert.Contains(t, api.texts(), formatReplyText(imageClearedText))
}

func TestAgainWithoutHistory(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("again")})

	assert.Contains(t, api.texts(), formatReplyText(noLastPromptText))
}

func TestAgainReusesLastPrompt(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	generator := &fakeGenerator{}
	b, api := newTestBot(nil, &fakeAnalyzer{}, generator)
	session := b.state.getUserSession(1, api)
	session.setImage([]byte("img"), "image/jpeg")
	session.setAnalysis(testAnalysis())
	session.setLastPrompt("a mug floating in space")

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("again")})

	require.Len(t, generator.imagePrompts, 1)
	assert.Equal(t, testCamera+" a mug floating in space"+scene.NoTextSuffix, generator.imagePrompts[0])
}

func TestDelkeyCommand(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SetAPIKey(1, "user-key"))
	b, api := newTestBot(store, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("delkey")})

	key, err := store.GetAPIKey(1)
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Contains(t, api.texts(), formatReplyText(apiKeyDeletedText))
}

func TestUnknownCommandShowsHelp(t *testing.T) {
	b, api := newTestBot(nil, &fakeAnalyzer{}, &fakeGenerator{})

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage("frobnicate")})

	assert.Contains(t, api.texts(), formatReplyText(helpText))
}

func TestHandlePhotoInstallsImageAndPreloadsHistory(t *testing.T) {
	imageBytes := []byte("jpeg-bytes")
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write(imageBytes)
	}))
	defer server.Close()

	store := newFakeStore()
	fingerprint := scene.Fingerprint(imageBytes)
	require.NoError(t, store.SaveDescription(1, fingerprint, storage.ProductDescription{
		English: "A saved teapot description.",
		Chinese: "一个茶壶。",
	}))

	b, api := newTestBot(store, &fakeAnalyzer{}, &fakeGenerator{})
	api.fileURL = func(fileID string) string { return server.URL + "/file/" + fileID }

	msg := &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 1},
		Caption: "my teapot",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
	}
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	// The largest size is downloaded.
	assert.Equal(t, "/file/large", requestedPath)

	session := b.state.getUserSession(1, api)
	assert.True(t, session.hasImage())
	assert.Equal(t, fingerprint, session.getFingerprint())

	// The saved description wins over the caption as the preloaded context.
	_, _, productContext, _, _, _, _ := session.analyzeSnapshot()
	assert.Equal(t, "A saved teapot description.", productContext)
	assert.Contains(t, api.texts(), formatReplyText(historyLoadedText, "A saved teapot description."))
}

func TestHandlePhotoWithoutHistoryKeepsCaption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("other-jpeg"))
	}))
	defer server.Close()

	b, api := newTestBot(newFakeStore(), &fakeAnalyzer{}, &fakeGenerator{})
	api.fileURL = func(fileID string) string { return server.URL + "/file/" + fileID }

	msg := &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 1},
		Caption: "my teapot",
		Photo:   []tgbotapi.PhotoSize{{FileID: "only"}},
	}
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	session := b.state.getUserSession(1, api)
	_, _, productContext, _, _, _, _ := session.analyzeSnapshot()
	assert.Equal(t, "my teapot", productContext)
}
