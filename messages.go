package main

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/dedent"

	"github.com/scenestudio/scene-studio-bot/scene"
)

const (
	startText = `
		Send me a product photo and I will turn it into marketing imagery.

		1. Send a photo of your product
		2. Optionally describe the product in a text message
		3. Pick a persona with /persona and run /analyze
		4. Pick one of the three proposed scenarios, or type your own prompt
		5. /generate to create the final image (or video for the videographer persona)

		/help shows all commands.`

	helpText = `
		Commands:
		/analyze - analyze the product photo and propose three scenarios
		/generate - generate media from the current prompt
		/again - regenerate with the last used prompt
		/persona - choose the creative persona
		/adjust - toggle creative orientation adjustments
		/apikey - set your own Gemini API key (required for video)
		/delkey - remove your stored API key
		/clearcontext - clear the product description field
		/clearprompt - clear the prompt buffer
		/reset - remove the photo and start over

		A text message sets the product description before analysis and the
		generation prompt after it.`

	noImageText        = `Send a product photo first.`
	busyText           = `Still working on the previous request, hold on.`
	analyzingText      = `Analyzing the product and composing scenarios...`
	generatingImage    = `Generating image...`
	generatingVideo    = `Generating video... this can take a couple of minutes.`
	emptyPromptText    = `The prompt is empty. Select a scenario or type a prompt first.`
	noLastPromptText   = `Nothing has been generated yet.`
	contextSetText     = `Product description noted. It will be used as the source of truth for the product's identity.`
	correctionSetText  = `Correction noted. Run /analyze to regenerate with the corrected description.`
	promptSetText      = `Prompt set. Generate with /generate.`
	contextClearedText = `Product description cleared.`
	promptClearedText  = `Prompt cleared.`
	imageClearedText   = `Photo removed. Send a new one to start over.`
	historyLoadedText  = `Loaded a saved product description for this photo:

		%s`
	adjustOnText  = `Creative adjustments enabled: small rotation and angle changes are allowed.`
	adjustOffText = `Creative adjustments disabled: framing and angle must match the source photo exactly.`

	personaPromptText   = `Choose a persona. It shapes both the analysis and the kind of media generated.`
	personaSelectedText = `Persona set: %s`

	analysisDoneText     = `Analysis complete. Pick a scenario below or type your own prompt.`
	feedbackPromptText   = `Is this product analysis correct?`
	feedbackSavedText    = `Thanks, the analysis was saved to your history.`
	correctionModeText   = `
		Send the corrected product description as a text message, then run
		/analyze to regenerate with the correction.`
	scenarioSelectedText = `
		Scenario %d selected. /generate to create it, or edit the prompt by
		sending a new text message.

		%s`

	apiKeyPromptText  = `Send your Gemini API key as the next message. It is stored encrypted and only used for your own requests.`
	apiKeySavedText   = `API key saved.`
	apiKeyDeletedText = `Stored API key removed.`
	apiKeyHintText    = `You can set or replace your API key with /apikey.`

	missingKeyText = `No API key available. Set one with /apikey, or ask the operator to configure GEMINI_API_KEY.`
	videoKeyText   = `Video generation uses your own API key. Set one with /apikey first.`
	videoStoreText = `Video generation is not available: this bot has no key store configured.`

	generationDoneText = `Done. /again regenerates with the same prompt.`
)

// formatReplyText dedents and trims a message constant and applies Sprintf
// formatting.
func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// errorText maps a classified pipeline error to its user-facing message.
// The raw error is diagnostic-only and never shown.
func errorText(err error) string {
	switch scene.KindOf(err) {
	case scene.KindMissingCredential:
		return missingKeyText
	case scene.KindMissingInput:
		return emptyPromptText
	case scene.KindResponseFormat, scene.KindResponseSchema:
		return `Failed to parse the AI response. Please try again.`
	case scene.KindEmptyGeneration:
		return `No image was produced. The prompt may have been filtered.`
	case scene.KindPolling:
		return `Failed to fetch the video generation status. Please try again.`
	case scene.KindDownload:
		return `The finished video could not be downloaded. Please try again.`
	case scene.KindTimeout:
		return `Video generation took too long and was abandoned. Please try again.`
	case scene.KindTransport:
		return `The API request failed. This is usually an invalid API key or a network problem.`
	case scene.KindAuthorization:
		return `Your API key is invalid or lacks permission.`
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}

func makePersonaKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, p := range scene.Personas() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(p.Label(), "persona:"+p.String()))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func makeScenarioKeyboard(n int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < n; i++ {
		label := "Scenario " + strconv.Itoa(i+1)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "scenario:"+strconv.Itoa(i)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeFeedbackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", "feedback:yes"),
			tgbotapi.NewInlineKeyboardButtonData("No, let me correct it", "feedback:no"),
		),
	)
}

// formatScenarioMessage renders one proposed scenario in both languages.
func formatScenarioMessage(idx int, s scene.Scenario) string {
	return fmt.Sprintf("Scenario %d\n\n%s\n\n%s", idx+1, s.English, s.Chinese)
}
