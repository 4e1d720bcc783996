package prompt

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

const DefaultModel = "gemini-3-pro-preview"

// Resolver turns a StyleInput into a ResolvedStyle. It never fails: any
// problem resolves to the unmodified input.
type Resolver interface {
	Resolve(ctx context.Context, style domain.StyleInput, tool domain.ToolType) domain.ResolvedStyle
}

// StaticResolver passes every style through untouched.
type StaticResolver struct{}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{}
}

func (s *StaticResolver) Resolve(ctx context.Context, style domain.StyleInput, tool domain.ToolType) domain.ResolvedStyle {
	return domain.Passthrough(style)
}

type GeminiOptions struct {
	Generator  gemini.ContentGenerator
	Model      string
	Fallback   Resolver
	Logger     *infra.Logger
	OnFallback func(reason string, err error)
}

// GeminiResolver rewrites layman TEXT styles into photography prompts with
// a text model. IMAGE styles never reach the model.
type GeminiResolver struct {
	generator  gemini.ContentGenerator
	model      string
	fallback   Resolver
	logger     infra.Logger
	onFallback func(reason string, err error)
}

func NewGeminiResolver(opts GeminiOptions) (*GeminiResolver, error) {
	if opts.Generator == nil {
		return nil, errors.New("prompt: content generator is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticResolver()
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiResolver{
		generator:  opts.Generator,
		model:      model,
		fallback:   fallback,
		logger:     logger,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiResolver) Resolve(ctx context.Context, style domain.StyleInput, tool domain.ToolType) domain.ResolvedStyle {
	if style.IsImage() {
		return domain.Passthrough(style)
	}
	contents := []*genai.Content{genai.NewContentFromText(buildRewritePrompt(style.Description(), tool), genai.RoleUser)}
	resp, err := g.generator.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return g.useFallback(ctx, style, tool, "http_request", err)
	}
	text, err := decodeRewrite(resp)
	if err != nil {
		return g.useFallback(ctx, style, tool, "decode", err)
	}
	return domain.ResolvedStyle{Kind: domain.StyleText, Text: text}
}

func (g *GeminiResolver) useFallback(ctx context.Context, style domain.StyleInput, tool domain.ToolType, reason string, err error) domain.ResolvedStyle {
	g.logger.Warn().Err(err).Str("reason", reason).Str("model", g.model).Msg("prompt: style rewrite fell back to original text")
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return g.fallback.Resolve(ctx, style, tool)
}

func buildRewritePrompt(description string, tool domain.ToolType) string {
	role := "Product/Commercial Photographer"
	if tool.IsFood() {
		role = "Food Photographer"
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are a world-class %s and Art Director.\n", role)
	sb.WriteString("Convert this user description into a high-end photography prompt.\n\n")
	fmt.Fprintf(sb, "User Input: %q\n\n", description)
	sb.WriteString("MANDATORY ENHANCEMENTS:\n")
	sb.WriteString("- Add lighting keywords.\n")
	sb.WriteString("- Add camera settings.\n")
	sb.WriteString("- Add texture and material keywords.\n\n")
	sb.WriteString("Output ONLY the enhanced prompt string.")
	return sb.String()
}

var (
	_ Resolver = (*StaticResolver)(nil)
	_ Resolver = (*GeminiResolver)(nil)
)
