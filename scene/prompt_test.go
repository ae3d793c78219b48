package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysisPromptSegments(t *testing.T) {
	prompt := BuildAnalysisPrompt(PromptInput{Persona: PersonaEcommerce})

	assert.True(t, strings.HasPrefix(prompt, "Your Identity: "+PersonaEcommerce.Instruction()))
	assert.Contains(t, prompt, "Product Identification via Web Search")
	assert.Contains(t, prompt, `"product_description"`)
	assert.Contains(t, prompt, `"recommended_camera"`)
	assert.Contains(t, prompt, `"scenarios"`)
	assert.Contains(t, prompt, ScenarioTrailer)
	// Sanity: every Sprintf verb was consumed.
	assert.NotContains(t, prompt, "%!")
}

func TestBuildAnalysisPromptUserContext(t *testing.T) {
	without := BuildAnalysisPrompt(PromptInput{Persona: PersonaAnalyst})
	assert.NotContains(t, without, "primary source of truth")

	with := BuildAnalysisPrompt(PromptInput{
		Persona:     PersonaAnalyst,
		UserContext: "A cast-iron teapot from the 1960s",
	})
	assert.Contains(t, with, `"A cast-iron teapot from the 1960s"`)
	assert.Contains(t, with, "primary source of truth")
}

func TestBuildAnalysisPromptOrientationModes(t *testing.T) {
	strict := BuildAnalysisPrompt(PromptInput{Persona: PersonaAnalyst})
	assert.Contains(t, strict, "identically match")
	assert.NotContains(t, strict, "creative license")

	adjustable := BuildAnalysisPrompt(PromptInput{Persona: PersonaAnalyst, AllowAdjustments: true})
	assert.Contains(t, adjustable, "creative license")
	assert.NotContains(t, adjustable, "identically match")
}

func TestFinalPromptScenarioPassthrough(t *testing.T) {
	camera := "(Virtual Camera: 50mm lens, f/8, 1/125s, ISO 100)"
	scenarios := []Scenario{
		{English: camera + " A mug on a desk. " + ScenarioTrailer},
		{English: camera + " A mug in a kitchen. " + ScenarioTrailer},
	}

	// A scenario-sourced prompt is already self-contained: no duplicate
	// camera prefix, no duplicate no-text suffix.
	got := FinalPrompt(scenarios[0].English, scenarios, camera, PersonaEcommerce)
	assert.Equal(t, scenarios[0].English, got)
	assert.Equal(t, 1, strings.Count(got, camera))
	assert.NotContains(t, got, NoTextSuffix)
}

func TestFinalPromptUserTyped(t *testing.T) {
	camera := "(Virtual Camera: 85mm lens, f/8, 1/125s, ISO 100)"
	scenarios := []Scenario{{English: "something else"}}

	got := FinalPrompt("a mug floating in space", scenarios, camera, PersonaEcommerce)
	assert.Equal(t, camera+" a mug floating in space"+NoTextSuffix, got)
}

func TestFinalPromptVideoPersonaSkipsCamera(t *testing.T) {
	camera := "(Virtual Camera: 85mm lens, f/8, 1/125s, ISO 100)"

	got := FinalPrompt("a slow push-in on a mug", nil, camera, PersonaVideographer)
	assert.Equal(t, "a slow push-in on a mug"+NoTextSuffix, got)
}

func TestFinalPromptEditedScenarioTreatedAsUserPrompt(t *testing.T) {
	camera := "(Virtual Camera: 50mm lens, f/8, 1/125s, ISO 100)"
	scenarios := []Scenario{{English: camera + " A mug on a desk. " + ScenarioTrailer}}

	edited := scenarios[0].English + " with warmer light"
	got := FinalPrompt(edited, scenarios, camera, PersonaEcommerce)
	assert.Equal(t, camera+" "+edited+NoTextSuffix, got)
}
