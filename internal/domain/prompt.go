package domain

import (
	"fmt"
	"strings"
)

// DefaultStyleDescription is used when a text style arrives blank.
const DefaultStyleDescription = "Professional studio lighting, high end commercial photography"

// StyleKind tags the StyleInput variant.
type StyleKind string

const (
	StyleImage StyleKind = "IMAGE"
	StyleText  StyleKind = "TEXT"
)

// StyleInput is either a reference image or a free text description, never
// both. Build it with NewImageStyle or NewTextStyle.
type StyleInput struct {
	kind        StyleKind
	reference   Image
	description string
}

func NewImageStyle(reference Image) StyleInput {
	return StyleInput{kind: StyleImage, reference: reference}
}

func NewTextStyle(description string) StyleInput {
	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultStyleDescription
	}
	return StyleInput{kind: StyleText, description: description}
}

func (s StyleInput) Kind() StyleKind     { return s.kind }
func (s StyleInput) Reference() Image    { return s.reference }
func (s StyleInput) Description() string { return s.description }
func (s StyleInput) IsImage() bool       { return s.kind == StyleImage }

func (s StyleInput) Validate() error {
	switch s.kind {
	case StyleImage:
		if s.reference.Empty() {
			return fmt.Errorf("%w: reference image is empty", ErrInvalidStyle)
		}
	case StyleText:
		if s.description == "" {
			return fmt.Errorf("%w: description is empty", ErrInvalidStyle)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidStyle, s.kind)
	}
	return nil
}

func ParseStyleKind(s string) (StyleKind, error) {
	v, err := parseEnum(s, []StyleKind{StyleImage, StyleText}, "style.type")
	if err != nil {
		return "", fmt.Errorf("%w: type %q", ErrInvalidStyle, s)
	}
	return v, nil
}

// ResolvedStyle is the Style Resolver output. For IMAGE styles Reference is
// the untouched input; for TEXT styles Text holds the rewritten description.
type ResolvedStyle struct {
	Kind      StyleKind
	Reference Image
	Text      string
}

// Passthrough resolves a style without any rewrite.
func Passthrough(s StyleInput) ResolvedStyle {
	return ResolvedStyle{Kind: s.kind, Reference: s.reference, Text: s.description}
}
