package main

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/scenestudio/scene-studio-bot/scene"
)

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserSession holds one user's studio state. Most fields are written once
// per analysis and read many times; a new photo resets everything. The busy
// flag serializes the two network transitions (analyze, generate) so a
// second request cannot start while one is outstanding.
type UserSession struct {
	userID int64
	sender MessageSender
	mu     sync.Mutex

	busy bool

	image       []byte
	imageMIME   string
	fingerprint string

	persona          scene.Persona
	allowAdjustments bool

	// productContext is the editable product description field: typed by
	// the user, preloaded from history, or copied from the canonical
	// description when entering correction mode.
	productContext string
	correctionMode bool
	awaitingAPIKey bool

	description *scene.BilingualText
	camera      string
	scenarios   []scene.Scenario

	promptBuffer string
	lastPrompt   string

	artifact *scene.Artifact
}

// tryBegin marks the session busy. It returns false if another analyze or
// generate transition is already in flight.
func (s *UserSession) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *UserSession) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// setImage installs a newly uploaded photo and resets all derived state.
// Returns the image fingerprint.
func (s *UserSession) setImage(data []byte, mimeType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = data
	s.imageMIME = mimeType
	s.fingerprint = scene.Fingerprint(data)
	s.productContext = ""
	s.correctionMode = false
	s.description = nil
	s.camera = ""
	s.scenarios = nil
	s.promptBuffer = ""
	s.lastPrompt = ""
	s.artifact = nil
	log.Info().Int64("userId", s.userID).Str("fingerprint", s.fingerprint[:16]).Msg("image set, session reset")
	return s.fingerprint
}

// clearImage drops the photo and all derived state, including the last
// generated artifact.
func (s *UserSession) clearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.imageMIME = ""
	s.fingerprint = ""
	s.productContext = ""
	s.correctionMode = false
	s.allowAdjustments = false
	s.description = nil
	s.camera = ""
	s.scenarios = nil
	s.promptBuffer = ""
	s.lastPrompt = ""
	s.artifact = nil
	log.Info().Int64("userId", s.userID).Msg("session cleared")
}

func (s *UserSession) hasImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.image) > 0
}

func (s *UserSession) getFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

func (s *UserSession) hasScenarios() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scenarios) > 0
}

func (s *UserSession) setPersona(p scene.Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
}

func (s *UserSession) getPersona() scene.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// toggleAdjustments flips the creative-adjustment flag and returns the new
// value.
func (s *UserSession) toggleAdjustments() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowAdjustments = !s.allowAdjustments
	return s.allowAdjustments
}

func (s *UserSession) setProductContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productContext = text
}

func (s *UserSession) setPromptBuffer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptBuffer = text
}

func (s *UserSession) setAwaitingAPIKey(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingAPIKey = v
}

func (s *UserSession) isAwaitingAPIKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingAPIKey
}

func (s *UserSession) clearCorrectionMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correctionMode = false
}

func (s *UserSession) inCorrectionMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correctionMode
}

// analyzeSnapshot returns everything an analysis call needs, read in one
// critical section.
func (s *UserSession) analyzeSnapshot() (image []byte, mimeType, context string, persona scene.Persona, adjustments, correction bool, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image, s.imageMIME, s.productContext, s.persona, s.allowAdjustments, s.correctionMode, s.fingerprint
}

// generateSnapshot returns everything a generation call needs.
func (s *UserSession) generateSnapshot() (prompt, camera string, scenarios []scene.Scenario, persona scene.Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptBuffer, s.camera, s.scenarios, s.persona
}

func (s *UserSession) getLastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

func (s *UserSession) setLastPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrompt = prompt
}

// setAnalysis atomically replaces the canonical description, camera profile
// and scenario set. A partial update is never observable.
func (s *UserSession) setAnalysis(a *scene.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := a.Description
	s.description = &desc
	s.camera = a.Camera
	s.scenarios = a.Scenarios
	s.correctionMode = false
	s.promptBuffer = ""
}

func (s *UserSession) getAnalysis() (*scene.BilingualText, string, []scene.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description, s.camera, s.scenarios
}

// selectScenario copies a scenario's English prompt into the editable
// prompt buffer. Purely local, no network.
func (s *UserSession) selectScenario(idx int) (scene.Scenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.scenarios) {
		return scene.Scenario{}, false
	}
	s.promptBuffer = s.scenarios[idx].English
	return s.scenarios[idx], true
}

// enterCorrectionMode copies the canonical description into the editable
// context field so the user can fix it and re-analyze. Returns false if
// there is no analysis to correct.
func (s *UserSession) enterCorrectionMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.description == nil {
		return false
	}
	s.productContext = s.description.English
	s.correctionMode = true
	return true
}

// setArtifact replaces the last generated artifact, returning the previous
// one. Only one artifact is held at a time; the previous reference is
// dropped so repeated generations do not accumulate.
func (s *UserSession) setArtifact(a *scene.Artifact) *scene.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.artifact
	s.artifact = a
	return prev
}

func (s *UserSession) getArtifact() *scene.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userID
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to send reply message")
	}
	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{Text: formatReplyText(text, a...)})
}

// replyRaw sends text verbatim, without Sprintf formatting. Used for
// model-produced content that may contain formatting verbs.
func (s *UserSession) replyRaw(text string) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{Text: text})
}

func (s *UserSession) replyWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{Text: formatReplyText(text)}
	msg.ReplyMarkup = keyboard
	return s.replyWithMessage(msg)
}

// replyWithError reports a classified pipeline error to the user. The
// underlying error detail goes to the log only.
func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Err(err).Int64("userId", s.userID).Str("kind", scene.KindOf(err).String()).Msg("transition failed")
	text := errorText(err)
	if scene.SuggestsKeyProblem(err) {
		text += "\n\n" + apiKeyHintText
	}
	return s.reply(text)
}
