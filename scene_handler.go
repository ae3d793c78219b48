package main

import (
	"context"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/scenestudio/scene-studio-bot/scene"
	"github.com/scenestudio/scene-studio-bot/storage"
)

// ProductAnalyzer runs the vision analysis call.
type ProductAnalyzer interface {
	AnalyzeProduct(ctx context.Context, req scene.AnalyzeRequest) (*scene.Analysis, error)
}

// MediaGenerator drives the image and video generation paths.
type MediaGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*scene.Artifact, error)
	GenerateVideo(ctx context.Context, prompt string) (*scene.Artifact, error)
}

// SceneHandler coordinates the analyze → correction → selection → generate
// flow over a user session. Analyzer and generator construction is injected
// so tests can substitute fakes; production wiring builds genai clients
// with whichever API key the user has resolved.
type SceneHandler struct {
	store        storage.HistoryStore
	newAnalyzer  func(ctx context.Context, apiKey string) (ProductAnalyzer, error)
	newGenerator func(ctx context.Context, apiKey string) (MediaGenerator, error)
}

// NewSceneHandler creates a handler with production genai wiring.
// The store may be nil, in which case history and per-user keys are
// unavailable and the flow silently degrades.
func NewSceneHandler(store storage.HistoryStore) *SceneHandler {
	return &SceneHandler{
		store: store,
		newAnalyzer: func(ctx context.Context, apiKey string) (ProductAnalyzer, error) {
			client, err := scene.NewClient(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			return scene.NewAnalyzer(client), nil
		},
		newGenerator: func(ctx context.Context, apiKey string) (MediaGenerator, error) {
			client, err := scene.NewClient(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			return scene.NewGenerator(client, apiKey), nil
		},
	}
}

// resolveAPIKey returns the user's stored key if one is selected, falling
// back to the process-wide GEMINI_API_KEY.
func (h *SceneHandler) resolveAPIKey(userID int64) string {
	if h.store != nil {
		key, err := h.store.GetAPIKey(userID)
		if err != nil {
			log.Warn().Err(err).Int64("userId", userID).Msg("failed to read stored api key")
		} else if key != "" {
			return key
		}
	}
	return os.Getenv("GEMINI_API_KEY")
}

// hasSelectedAPIKey reports whether the user has explicitly stored a key of
// their own. The video path requires this; the shared environment key is
// not enough.
func (h *SceneHandler) hasSelectedAPIKey(userID int64) bool {
	if h.store == nil {
		return false
	}
	key, err := h.store.GetAPIKey(userID)
	return err == nil && key != ""
}

// promptForAPIKey reports a missing credential and, when a key store is
// available, arms the key-selection flow so the user's next message is
// taken as their key.
func (h *SceneHandler) promptForAPIKey(session *UserSession) {
	if h.store != nil {
		session.setAwaitingAPIKey(true)
	}
	session.reply(missingKeyText)
}

// saveDescription persists a description to history. Best-effort: failures
// are logged and swallowed so the main flow never blocks on persistence.
func (h *SceneHandler) saveDescription(userID int64, fingerprint string, desc storage.ProductDescription) {
	if h.store == nil || fingerprint == "" || (desc.English == "" && desc.Chinese == "") {
		return
	}
	if err := h.store.SaveDescription(userID, fingerprint, desc); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to save description to history")
	}
}

// HandleAnalyze runs the analysis transition: optional correction save,
// model call, atomic replacement of the session's analysis, scenario
// rendering and the feedback prompt. On failure nothing is mutated.
func (h *SceneHandler) HandleAnalyze(ctx context.Context, session *UserSession) {
	apiKey := h.resolveAPIKey(session.userID)
	if apiKey == "" {
		h.promptForAPIKey(session)
		return
	}

	image, mimeType, productContext, persona, adjustments, correction, fingerprint := session.analyzeSnapshot()
	if len(image) == 0 {
		session.reply(noImageText)
		return
	}

	if !session.tryBegin() {
		session.reply(busyText)
		return
	}
	defer session.end()

	// A correction round persists the user-edited description and leaves
	// correction mode before the new analysis runs, so a failed call does
	// not re-save the same correction later.
	if correction {
		canonical, _, _ := session.getAnalysis()
		desc := storage.ProductDescription{English: strings.TrimSpace(productContext)}
		if canonical != nil {
			desc.Chinese = canonical.Chinese
		}
		h.saveDescription(session.userID, fingerprint, desc)
		session.clearCorrectionMode()
	}

	session.reply(analyzingText)

	analyzer, err := h.newAnalyzer(ctx, apiKey)
	if err != nil {
		session.replyWithError(err)
		return
	}

	analysis, err := analyzer.AnalyzeProduct(ctx, scene.AnalyzeRequest{
		Image:            image,
		MIMEType:         mimeType,
		Persona:          persona,
		UserContext:      productContext,
		AllowAdjustments: adjustments,
	})
	if err != nil {
		session.replyWithError(err)
		return
	}

	session.setAnalysis(analysis)

	session.replyRaw(analysis.Description.Chinese + "\n\n" + analysis.Description.English)
	for i, s := range analysis.Scenarios {
		session.replyRaw(formatScenarioMessage(i, s))
	}
	session.replyWithKeyboard(analysisDoneText, makeScenarioKeyboard(len(analysis.Scenarios)))

	if h.store != nil {
		session.replyWithKeyboard(feedbackPromptText, makeFeedbackKeyboard())
	}
}

// HandleFeedback handles the binary "is this analysis correct?" answer.
// Confirmation persists the canonical description; rejection enters
// correction mode.
func (h *SceneHandler) HandleFeedback(session *UserSession, confirmed bool) {
	if confirmed {
		desc, _, _ := session.getAnalysis()
		if desc != nil {
			h.saveDescription(session.userID, session.getFingerprint(), storage.ProductDescription{
				English: desc.English,
				Chinese: desc.Chinese,
			})
		}
		session.reply(feedbackSavedText)
		return
	}

	if session.enterCorrectionMode() {
		session.reply(correctionModeText)
	}
}

// HandleSelect copies one scenario's prompt into the prompt buffer.
func (h *SceneHandler) HandleSelect(session *UserSession, idx int) {
	selected, ok := session.selectScenario(idx)
	if !ok {
		return
	}
	session.reply(scenarioSelectedText, idx+1, selected.English)
}

// HandleGenerate runs the generation transition: final prompt assembly and
// the image or video path depending on the persona. Session state other
// than the artifact is unchanged on failure so the user can retry.
func (h *SceneHandler) HandleGenerate(ctx context.Context, session *UserSession, promptOverride string) {
	persona := session.getPersona()

	// Video generation requires a user-selected key rather than the shared
	// environment one.
	if persona.MediaTarget() == scene.MediaVideo {
		if h.store == nil {
			session.reply(videoStoreText)
			return
		}
		if !h.hasSelectedAPIKey(session.userID) {
			session.setAwaitingAPIKey(true)
			session.reply(videoKeyText)
			return
		}
	}

	apiKey := h.resolveAPIKey(session.userID)
	if apiKey == "" {
		h.promptForAPIKey(session)
		return
	}

	prompt, camera, scenarios, persona := session.generateSnapshot()
	if promptOverride != "" {
		prompt = promptOverride
	}
	if strings.TrimSpace(prompt) == "" {
		session.reply(emptyPromptText)
		return
	}

	if !session.tryBegin() {
		session.reply(busyText)
		return
	}
	defer session.end()

	session.setLastPrompt(prompt)
	finalPrompt := scene.FinalPrompt(prompt, scenarios, camera, persona)
	log.Debug().Str("finalPrompt", finalPrompt).Msg("assembled generation prompt")

	generator, err := h.newGenerator(ctx, apiKey)
	if err != nil {
		session.replyWithError(err)
		return
	}

	var artifact *scene.Artifact
	if persona.MediaTarget() == scene.MediaVideo {
		session.reply(generatingVideo)
		artifact, err = generator.GenerateVideo(ctx, finalPrompt)
	} else {
		session.reply(generatingImage)
		artifact, err = generator.GenerateImage(ctx, finalPrompt)
	}
	if err != nil {
		session.replyWithError(err)
		return
	}

	session.setArtifact(artifact)
	h.sendArtifact(session, artifact)
	session.reply(generationDoneText)
}

// sendArtifact delivers the generated media as a Telegram upload.
func (h *SceneHandler) sendArtifact(session *UserSession, artifact *scene.Artifact) {
	var msg tgbotapi.Chattable
	if artifact.Kind == scene.MediaVideo {
		msg = tgbotapi.NewVideo(session.userID, tgbotapi.FileBytes{Name: "scene.mp4", Bytes: artifact.Data})
	} else {
		msg = tgbotapi.NewPhoto(session.userID, tgbotapi.FileBytes{Name: "scene.jpg", Bytes: artifact.Data})
	}
	if _, err := session.sender.Send(msg); err != nil {
		log.Error().Err(err).Int64("userId", session.userID).Msg("failed to send generated media")
	}
}
