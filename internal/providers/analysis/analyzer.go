package analysis

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"nexiro/internal/domain"
	"nexiro/internal/infra"
	"nexiro/internal/providers/gemini"
)

const DefaultModel = "gemini-3-flash-preview"

const (
	foodPrompt      = "Analyze this food image. List the visible food ingredients (comma separated) and any non-food props."
	productPrompt   = "Analyze this product image. List visible text, brand names, logo details, and primary materials (e.g., clear glass, gold metal, matte plastic)."
	referencePrompt = "Identify distinct props in this style reference image (e.g., vases, cutlery, flowers, stones, pedestals). Return only a list of items."
)

// Analyzer extracts subject facts from images. Both methods are advisory:
// failures degrade to empty results and are never returned to the caller.
type Analyzer interface {
	Analyze(ctx context.Context, source domain.Image, tool domain.ToolType) domain.AnalysisResult
	ReferenceProps(ctx context.Context, reference domain.Image) []string
}

type GeminiOptions struct {
	Generator gemini.ContentGenerator
	Model     string
	Logger    *infra.Logger
	// OnFallback is invoked with a short reason whenever a call degrades.
	OnFallback func(reason string, err error)
}

type GeminiAnalyzer struct {
	generator  gemini.ContentGenerator
	model      string
	logger     infra.Logger
	onFallback func(reason string, err error)
}

func NewGeminiAnalyzer(opts GeminiOptions) (*GeminiAnalyzer, error) {
	if opts.Generator == nil {
		return nil, errors.New("analysis: content generator is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiAnalyzer{
		generator:  opts.Generator,
		model:      model,
		logger:     logger,
		onFallback: opts.OnFallback,
	}, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, source domain.Image, tool domain.ToolType) domain.AnalysisResult {
	if source.Empty() {
		return domain.EmptyAnalysis()
	}
	resp, err := a.generator.GenerateContent(ctx, a.model, imagePrompt(source, analysisPrompt(tool)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	})
	if err != nil {
		a.fallback("http_request", err)
		return domain.EmptyAnalysis()
	}
	result, err := decodeAnalysis(resp)
	if err != nil {
		a.fallback("decode", err)
		return domain.EmptyAnalysis()
	}
	return result
}

func (a *GeminiAnalyzer) ReferenceProps(ctx context.Context, reference domain.Image) []string {
	if reference.Empty() {
		return []string{}
	}
	resp, err := a.generator.GenerateContent(ctx, a.model, imagePrompt(reference, referencePrompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   propsSchema,
	})
	if err != nil {
		a.fallback("http_request", err)
		return []string{}
	}
	props, err := decodeProps(resp)
	if err != nil {
		a.fallback("decode", err)
		return []string{}
	}
	return props
}

func (a *GeminiAnalyzer) fallback(reason string, err error) {
	a.logger.Warn().Err(err).Str("reason", reason).Str("model", a.model).Msg("analysis: falling back to empty result")
	if a.onFallback != nil {
		a.onFallback(reason, err)
	}
}

func analysisPrompt(tool domain.ToolType) string {
	if tool == domain.ToolProduct {
		return productPrompt
	}
	return foodPrompt
}

func imagePrompt(img domain.Image, text string) []*genai.Content {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: img.ContentType(), Data: img.Data}},
		genai.NewPartFromText(text),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"details": {
			Type:        genai.TypeString,
			Description: "Comma separated list of key elements to preserve (ingredients or product text/materials)",
		},
		"props": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of props/objects found in the image",
		},
	},
}

var propsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"props": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
}

// StaticAnalyzer never calls a model. It backs offline compiles.
type StaticAnalyzer struct{}

func (StaticAnalyzer) Analyze(context.Context, domain.Image, domain.ToolType) domain.AnalysisResult {
	return domain.EmptyAnalysis()
}

func (StaticAnalyzer) ReferenceProps(context.Context, domain.Image) []string {
	return []string{}
}

var (
	_ Analyzer = (*GeminiAnalyzer)(nil)
	_ Analyzer = StaticAnalyzer{}
)
