package scene

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const analysisModel = "gemini-2.5-flash"

// NewClient creates a genai client for the given API key. Clients are cheap
// to construct, so the bot builds one per transition with whichever key the
// user has resolved at that point.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, newError(KindMissingCredential, "no api key configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, ClassifyAPIError(err)
	}
	return client, nil
}

// Analyzer runs the product analysis call against the vision model.
type Analyzer struct {
	client *genai.Client
}

func NewAnalyzer(client *genai.Client) *Analyzer {
	return &Analyzer{client: client}
}

// AnalyzeRequest is one analysis invocation: the product photo plus
// everything that conditions the instruction text.
type AnalyzeRequest struct {
	Image            []byte
	MIMEType         string
	Persona          Persona
	UserContext      string
	AllowAdjustments bool
}

// AnalyzeProduct sends the image and the synthesized instruction to the
// analysis model (with web search enabled) and parses the response into a
// validated Analysis.
func (a *Analyzer) AnalyzeProduct(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if len(req.Image) == 0 {
		return nil, newError(KindMissingInput, "no image provided")
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	prompt := BuildAnalysisPrompt(PromptInput{
		Persona:          req.Persona,
		UserContext:      req.UserContext,
		AllowAdjustments: req.AllowAdjustments,
	})

	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: req.Image, MIMEType: mimeType}},
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	result, err := a.client.Models.GenerateContent(ctx, analysisModel, contents, config)
	if err != nil {
		return nil, ClassifyAPIError(err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, newError(KindResponseFormat, "empty response from analysis model")
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", analysisModel).
			Str("persona", req.Persona.String()).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Msg("analysis llm call")
	}

	return ParseAnalysis(result.Text())
}
