package jsoncfg

import (
	"encoding/base64"
	"fmt"
	"strings"

	"nexiro/internal/domain"
)

// ImageJSON carries an image as standard base64, optionally as a data URL.
// Path is only honored by the CLI, which loads the file before decoding.
type ImageJSON struct {
	Data     string `json:"data" yaml:"data,omitempty"`
	MIMEType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Path     string `json:"-" yaml:"path,omitempty"`
}

type StyleJSON struct {
	Type        string     `json:"type" yaml:"type"`
	Image       *ImageJSON `json:"image,omitempty" yaml:"image,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

type OptionsJSON struct {
	ToolType               string     `json:"tool_type" yaml:"tool_type"`
	AspectRatio            string     `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	Quality                string     `json:"quality,omitempty" yaml:"quality,omitempty"`
	BackgroundMode         string     `json:"background_mode,omitempty" yaml:"background_mode,omitempty"`
	BackgroundColor        string     `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	CameraAngle            string     `json:"camera_angle,omitempty" yaml:"camera_angle,omitempty"`
	UsageScenario          string     `json:"usage_scenario,omitempty" yaml:"usage_scenario,omitempty"`
	CustomInstructions     string     `json:"custom_instructions,omitempty" yaml:"custom_instructions,omitempty"`
	ProductDescription     string     `json:"product_description,omitempty" yaml:"product_description,omitempty"`
	DetectedSubjectDetails string     `json:"detected_subject_details,omitempty" yaml:"detected_subject_details,omitempty"`
	CustomBackground       *ImageJSON `json:"custom_background,omitempty" yaml:"custom_background,omitempty"`
	ExcludedProps          []string   `json:"excluded_props,omitempty" yaml:"excluded_props,omitempty"`
}

// EnhanceJSON is the wire shape of an enhancement request.
type EnhanceJSON struct {
	Source  ImageJSON   `json:"source" yaml:"source"`
	Style   StyleJSON   `json:"style" yaml:"style"`
	Options OptionsJSON `json:"options" yaml:"options"`
}

// EnhanceRequest is the decoded, validated form of EnhanceJSON.
type EnhanceRequest struct {
	Source  domain.Image
	Style   domain.StyleInput
	Options domain.EnhancementOptions
}

const DefaultToolType = "FOOD"

// Normalize fills omitted option fields with the session defaults.
func (p *EnhanceJSON) Normalize() {
	if p == nil {
		return
	}
	o := &p.Options
	if strings.TrimSpace(o.ToolType) == "" {
		o.ToolType = DefaultToolType
	}
	if o.AspectRatio == "" {
		o.AspectRatio = string(domain.DefaultAspectRatio)
	}
	if o.Quality == "" {
		o.Quality = string(domain.DefaultQuality)
	}
	if o.BackgroundMode == "" {
		o.BackgroundMode = string(domain.DefaultBackgroundMode)
	}
	if o.CameraAngle == "" {
		o.CameraAngle = string(domain.DefaultCameraAngle)
	}
	if o.UsageScenario == "" {
		o.UsageScenario = string(domain.DefaultUsageScenario)
	}
	if p.Style.Type == "" {
		if p.Style.Image != nil && p.Style.Image.Data != "" {
			p.Style.Type = string(domain.StyleImage)
		} else {
			p.Style.Type = string(domain.StyleText)
		}
	}
}

// Decode converts the payload into domain values and validates them. The
// source image is required.
func (p EnhanceJSON) Decode() (EnhanceRequest, error) {
	source, err := p.Source.Decode()
	if err != nil {
		return EnhanceRequest{}, fmt.Errorf("source: %w", err)
	}
	if source.Empty() {
		return EnhanceRequest{}, fmt.Errorf("%w: source image is required", domain.ErrInvalidOptions)
	}
	style, err := p.Style.Decode()
	if err != nil {
		return EnhanceRequest{}, err
	}
	opts, err := p.Options.Decode()
	if err != nil {
		return EnhanceRequest{}, err
	}
	return EnhanceRequest{Source: source, Style: style, Options: opts}, nil
}

// Decode parses the style union. A missing image on an IMAGE style is an
// error; a blank description falls back to the default text style.
func (s StyleJSON) Decode() (domain.StyleInput, error) {
	kind, err := domain.ParseStyleKind(s.Type)
	if err != nil {
		return domain.StyleInput{}, err
	}
	if kind == domain.StyleText {
		return domain.NewTextStyle(s.Description), nil
	}
	if s.Image == nil {
		return domain.StyleInput{}, fmt.Errorf("%w: image style requires style.image", domain.ErrInvalidStyle)
	}
	img, err := s.Image.Decode()
	if err != nil {
		return domain.StyleInput{}, fmt.Errorf("style.image: %w", err)
	}
	style := domain.NewImageStyle(img)
	if err := style.Validate(); err != nil {
		return domain.StyleInput{}, err
	}
	return style, nil
}

func (o OptionsJSON) Decode() (domain.EnhancementOptions, error) {
	var (
		opts domain.EnhancementOptions
		err  error
	)
	if opts.ToolType, err = domain.ParseToolType(o.ToolType); err != nil {
		return opts, err
	}
	if opts.AspectRatio, err = domain.ParseAspectRatio(o.AspectRatio); err != nil {
		return opts, err
	}
	if opts.Quality, err = domain.ParseQuality(o.Quality); err != nil {
		return opts, err
	}
	if opts.BackgroundMode, err = domain.ParseBackgroundMode(o.BackgroundMode); err != nil {
		return opts, err
	}
	if strings.TrimSpace(o.CameraAngle) != "" {
		if opts.CameraAngle, err = domain.ParseCameraAngle(o.CameraAngle); err != nil {
			return opts, err
		}
	}
	if strings.TrimSpace(o.UsageScenario) != "" {
		if opts.UsageScenario, err = domain.ParseUsageScenario(o.UsageScenario); err != nil {
			return opts, err
		}
	}
	opts.BackgroundColor = strings.TrimSpace(o.BackgroundColor)
	opts.CustomInstructions = strings.TrimSpace(o.CustomInstructions)
	opts.ProductDescription = strings.TrimSpace(o.ProductDescription)
	opts.DetectedSubjectDetails = strings.TrimSpace(o.DetectedSubjectDetails)
	for _, prop := range o.ExcludedProps {
		if prop = strings.TrimSpace(prop); prop != "" {
			opts.ExcludedProps = append(opts.ExcludedProps, prop)
		}
	}
	if o.CustomBackground != nil {
		if opts.CustomBackground, err = o.CustomBackground.Decode(); err != nil {
			return opts, fmt.Errorf("custom_background: %w", err)
		}
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Decode returns the binary image. Data URLs contribute their MIME type when
// MIMEType is unset.
func (i ImageJSON) Decode() (domain.Image, error) {
	raw := strings.TrimSpace(i.Data)
	mime := strings.TrimSpace(i.MIMEType)
	if strings.HasPrefix(raw, "data:") {
		header, payload, ok := strings.Cut(raw, ",")
		if !ok {
			return domain.Image{}, fmt.Errorf("%w: malformed data url", domain.ErrInvalidOptions)
		}
		if mime == "" {
			mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		raw = payload
	}
	if raw == "" {
		return domain.Image{MIMEType: mime}, nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidOptions)
	}
	return domain.Image{Data: data, MIMEType: mime}, nil
}

// EncodeImage is the inverse of ImageJSON.Decode.
func EncodeImage(img domain.Image) ImageJSON {
	return ImageJSON{Data: base64.StdEncoding.EncodeToString(img.Data), MIMEType: img.ContentType()}
}
