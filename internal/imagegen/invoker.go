package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"nexiro/internal/domain"
	"nexiro/internal/infra"
	"nexiro/internal/providers/gemini"
)

const DefaultModel = "gemini-3-pro-image-preview"

var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

type InvokerOptions struct {
	Generator gemini.ContentGenerator
	Model     string
	Logger    *infra.Logger
}

// Invoker sends a CompiledRequest to the image model. It does not retry.
type Invoker struct {
	generator gemini.ContentGenerator
	model     string
	logger    infra.Logger
}

func NewInvoker(opts InvokerOptions) (*Invoker, error) {
	if opts.Generator == nil {
		return nil, errors.New("imagegen: content generator is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Invoker{generator: opts.Generator, model: model, logger: logger}, nil
}

func (i *Invoker) Invoke(ctx context.Context, req CompiledRequest) (domain.Image, error) {
	resp, err := i.generator.GenerateContent(ctx, i.model, buildContents(req), buildConfig(req.Params()))
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	img, err := decodeImage(resp)
	if err != nil {
		i.logger.Warn().
			Str("model", i.model).
			Str("finish_reason", gemini.FinishReason(resp)).
			Msg("imagegen: response carried no image")
		return domain.Image{}, err
	}
	return img, nil
}

func buildContents(req CompiledRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.images)+1)
	for _, img := range req.images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.ContentType(), Data: img.Data}})
	}
	parts = append(parts, genai.NewPartFromText(req.instruction))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(params RenderParams) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: string(params.AspectRatio),
			ImageSize:   string(params.Quality),
		},
		SafetySettings: safetySettings,
	}
}

// decodeImage returns the first inline image of the first candidate. No
// such part yields ErrNoImageData, with the finish reason when one is known.
func decodeImage(resp *genai.GenerateContentResponse) (domain.Image, error) {
	blob, ok := gemini.FirstInlineData(resp)
	if !ok {
		if reason := gemini.FinishReason(resp); reason != "" && reason != string(genai.FinishReasonStop) {
			return domain.Image{}, fmt.Errorf("%w (finish reason %s)", domain.ErrNoImageData, reason)
		}
		return domain.Image{}, domain.ErrNoImageData
	}
	img := domain.Image{Data: blob.Data, MIMEType: blob.MIMEType}
	img.MIMEType = img.ContentType()
	return img, nil
}
