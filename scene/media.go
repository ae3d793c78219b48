package scene

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	imageModel = "imagen-4.0-generate-001"
	videoModel = "veo-3.1-fast-generate-preview"

	videoResolution  = "720p"
	videoAspectRatio = "16:9"

	defaultPollInterval = 5 * time.Second
	// The upstream job has no deadline of its own, so the poll loop is
	// bounded here: 120 attempts at 5s is ten minutes.
	defaultMaxPollAttempts = 120
)

// Artifact is one generated piece of media, held in memory for the session.
// Producing a new artifact replaces the previous one wholesale.
type Artifact struct {
	Data []byte
	MIME string
	Kind MediaKind
}

// videoBackend is the seam between the generator and the video model's
// job protocol.
type videoBackend interface {
	Start(ctx context.Context, prompt string) (*genai.GenerateVideosOperation, error)
	Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type genaiVideoBackend struct {
	client *genai.Client
}

func (b *genaiVideoBackend) Start(ctx context.Context, prompt string) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, videoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     videoResolution,
		AspectRatio:    videoAspectRatio,
	})
}

func (b *genaiVideoBackend) Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

// Generator drives image and video generation. The two paths are mutually
// exclusive per call; the persona decides which one the bot invokes.
type Generator struct {
	client *genai.Client
	apiKey string
	http   *resty.Client

	video           videoBackend
	pollInterval    time.Duration
	maxPollAttempts int
}

// NewGenerator creates a media generator. The API key is needed beyond the
// client itself because the video download URI requires it as a query
// parameter.
func NewGenerator(client *genai.Client, apiKey string) *Generator {
	return &Generator{
		client:          client,
		apiKey:          apiKey,
		http:            resty.New(),
		video:           &genaiVideoBackend{client: client},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

// GenerateImage runs a single synchronous image generation call and returns
// the first generated image.
func (g *Generator) GenerateImage(ctx context.Context, prompt string) (*Artifact, error) {
	if prompt == "" {
		return nil, newError(KindMissingInput, "empty prompt")
	}

	resp, err := g.client.Models.GenerateImages(ctx, imageModel, prompt, nil)
	if err != nil {
		return nil, ClassifyAPIError(err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, newError(KindEmptyGeneration, "no image produced, prompt may have been filtered")
	}

	image := resp.GeneratedImages[0].Image
	mime := image.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	log.Info().Str("model", imageModel).Int("bytes", len(image.ImageBytes)).Msg("image generated")

	return &Artifact{Data: image.ImageBytes, MIME: mime, Kind: MediaImage}, nil
}

// GenerateVideo submits an asynchronous video job, polls it until done and
// downloads the result. A poll failure is fatal to the attempt; the loop is
// bounded by maxPollAttempts.
func (g *Generator) GenerateVideo(ctx context.Context, prompt string) (*Artifact, error) {
	if prompt == "" {
		return nil, newError(KindMissingInput, "empty prompt")
	}

	op, err := g.video.Start(ctx, prompt)
	if err != nil {
		return nil, ClassifyAPIError(err)
	}

	attempts := 0
	for !op.Done {
		if attempts >= g.maxPollAttempts {
			return nil, newError(KindTimeout, "video generation did not finish within %d poll attempts", g.maxPollAttempts)
		}
		attempts++

		select {
		case <-ctx.Done():
			return nil, wrapError(KindTimeout, ctx.Err(), "video generation cancelled")
		case <-time.After(g.pollInterval):
		}

		op, err = g.video.Poll(ctx, op)
		if err != nil {
			return nil, wrapError(KindPolling, err, "failed to fetch video job status")
		}
		log.Debug().Str("operation", op.Name).Bool("done", op.Done).Int("attempt", attempts).Msg("video job polled")
	}

	uri := videoDownloadURI(op)
	if uri == "" {
		return nil, newError(KindDownload, "video job finished without a download link")
	}

	data, err := g.downloadVideo(ctx, uri)
	if err != nil {
		return nil, err
	}

	log.Info().Str("model", videoModel).Int("polls", attempts).Int("bytes", len(data)).Msg("video generated")

	return &Artifact{Data: data, MIME: "video/mp4", Kind: MediaVideo}, nil
}

func videoDownloadURI(op *genai.GenerateVideosOperation) string {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return ""
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return ""
	}
	return video.URI
}

// downloadVideo fetches the finished clip. The service requires the API key
// appended as a query parameter on the returned URI.
func (g *Generator) downloadVideo(ctx context.Context, uri string) ([]byte, error) {
	res, err := g.http.R().SetContext(ctx).Get(fmt.Sprintf("%s&key=%s", uri, g.apiKey))
	if err != nil {
		return nil, wrapError(KindDownload, err, "failed to download generated video")
	}
	if res.IsError() {
		return nil, newError(KindDownload, "failed to download generated video (HTTP %d)", res.StatusCode())
	}
	return res.Body(), nil
}
