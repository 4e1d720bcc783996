package imagegen

import "nexiro/internal/domain"

// RenderParams are the generation settings sent alongside the parts.
type RenderParams struct {
	Quality     domain.Quality
	AspectRatio domain.AspectRatio
}

// CompiledRequest is the write-once request handed to the Invoker: binary
// attachments in order, then exactly one instruction text.
type CompiledRequest struct {
	images      []domain.Image
	instruction string
	params      RenderParams
}

// Images returns a copy of the ordered attachments.
func (r CompiledRequest) Images() []domain.Image {
	out := make([]domain.Image, len(r.images))
	copy(out, r.images)
	return out
}

func (r CompiledRequest) Instruction() string  { return r.instruction }
func (r CompiledRequest) Params() RenderParams { return r.params }

// Assemble orders the parts: source first, the style reference only for
// IMAGE styles, the custom background only for CUSTOM mode with bytes, and
// the instruction text last.
func Assemble(source domain.Image, style domain.ResolvedStyle, opts domain.EnhancementOptions, instruction string) CompiledRequest {
	images := []domain.Image{source}
	if style.Kind == domain.StyleImage && !style.Reference.Empty() {
		images = append(images, style.Reference)
	}
	if opts.BackgroundMode == domain.BackgroundCustom && !opts.CustomBackground.Empty() {
		images = append(images, opts.CustomBackground)
	}
	return CompiledRequest{
		images:      images,
		instruction: instruction,
		params: RenderParams{
			Quality:     opts.Quality,
			AspectRatio: opts.AspectRatio,
		},
	}
}
