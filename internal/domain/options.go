package domain

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToolType selects the food or product pipeline variant.
type ToolType string

const (
	ToolFood    ToolType = "FOOD"
	ToolProduct ToolType = "PRODUCT"
)

type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectFourFive  AspectRatio = "4:5"
	AspectThreeFour AspectRatio = "3:4"
	AspectFourThree AspectRatio = "4:3"
)

type Quality string

const (
	Quality1K Quality = "1K"
	Quality2K Quality = "2K"
	Quality4K Quality = "4K"
)

type BackgroundMode string

const (
	BackgroundReferenceStyle BackgroundMode = "REFERENCE_STYLE"
	BackgroundTransparent    BackgroundMode = "TRANSPARENT"
	BackgroundColor          BackgroundMode = "COLOR"
	BackgroundKeepOriginal   BackgroundMode = "KEEP_ORIGINAL"
	BackgroundCustom         BackgroundMode = "CUSTOM"
)

type CameraAngle string

const (
	AngleEyeLevel  CameraAngle = "EYE_LEVEL"
	AngleFortyFive CameraAngle = "FORTY_FIVE"
	AngleTopDown   CameraAngle = "TOP_DOWN"
	AngleMacro     CameraAngle = "MACRO"
)

type UsageScenario string

const (
	ScenarioSocialLifestyle UsageScenario = "SOCIAL_LIFESTYLE"
	ScenarioEcommerceMenu   UsageScenario = "ECOMMERCE_MENU"
	ScenarioWebsiteHero     UsageScenario = "WEBSITE_HERO"
)

const (
	DefaultAspectRatio     = AspectSquare
	DefaultQuality         = Quality1K
	DefaultBackgroundMode  = BackgroundReferenceStyle
	DefaultBackgroundColor = "#ffffff"
	DefaultCameraAngle     = AngleEyeLevel
	DefaultUsageScenario   = ScenarioSocialLifestyle
)

var (
	toolTypes       = []ToolType{ToolFood, ToolProduct}
	aspectRatios    = []AspectRatio{AspectSquare, AspectPortrait, AspectLandscape, AspectFourFive, AspectThreeFour, AspectFourThree}
	qualities       = []Quality{Quality1K, Quality2K, Quality4K}
	backgroundModes = []BackgroundMode{BackgroundReferenceStyle, BackgroundTransparent, BackgroundColor, BackgroundKeepOriginal, BackgroundCustom}
	cameraAngles    = []CameraAngle{AngleEyeLevel, AngleFortyFive, AngleTopDown, AngleMacro}
	usageScenarios  = []UsageScenario{ScenarioSocialLifestyle, ScenarioEcommerceMenu, ScenarioWebsiteHero}

	hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Image is an in-memory binary image attachment.
type Image struct {
	Data     []byte
	MIMEType string
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// ContentType returns the declared MIME type, sniffing the bytes when it is
// missing. Anything that does not sniff as an image is sent as JPEG.
func (i Image) ContentType() string {
	if mime := strings.TrimSpace(i.MIMEType); mime != "" {
		return mime
	}
	if len(i.Data) > 0 {
		if sniffed := http.DetectContentType(i.Data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return "image/jpeg"
}

// EnhancementOptions is the per-request option set. It is treated as an
// immutable value once the request is accepted.
type EnhancementOptions struct {
	ToolType               ToolType
	AspectRatio            AspectRatio
	Quality                Quality
	BackgroundMode         BackgroundMode
	BackgroundColor        string
	CameraAngle            CameraAngle
	UsageScenario          UsageScenario
	CustomInstructions     string
	ProductDescription     string
	DetectedSubjectDetails string
	CustomBackground       Image
	ExcludedProps          []string
}

// DefaultOptions returns the option set a fresh session starts with.
func DefaultOptions(tool ToolType) EnhancementOptions {
	return EnhancementOptions{
		ToolType:        tool,
		AspectRatio:     DefaultAspectRatio,
		Quality:         DefaultQuality,
		BackgroundMode:  DefaultBackgroundMode,
		BackgroundColor: DefaultBackgroundColor,
		CameraAngle:     DefaultCameraAngle,
		UsageScenario:   DefaultUsageScenario,
	}
}

// WithDefaults fills every unset enum with its session default.
func (o EnhancementOptions) WithDefaults() EnhancementOptions {
	if o.AspectRatio == "" {
		o.AspectRatio = DefaultAspectRatio
	}
	if o.Quality == "" {
		o.Quality = DefaultQuality
	}
	if o.BackgroundMode == "" {
		o.BackgroundMode = DefaultBackgroundMode
	}
	if o.BackgroundMode == BackgroundColor && strings.TrimSpace(o.BackgroundColor) == "" {
		o.BackgroundColor = DefaultBackgroundColor
	}
	if o.CameraAngle == "" {
		o.CameraAngle = DefaultCameraAngle
	}
	if o.UsageScenario == "" {
		o.UsageScenario = DefaultUsageScenario
	}
	return o
}

// Validate reports the first option that falls outside its allowed set.
// Camera angle and usage scenario may be left empty.
func (o EnhancementOptions) Validate() error {
	if !contains(toolTypes, o.ToolType) {
		return fmt.Errorf("%w: tool_type %q", ErrInvalidOptions, o.ToolType)
	}
	if !contains(aspectRatios, o.AspectRatio) {
		return fmt.Errorf("%w: aspect_ratio %q", ErrInvalidOptions, o.AspectRatio)
	}
	if !contains(qualities, o.Quality) {
		return fmt.Errorf("%w: quality %q", ErrInvalidOptions, o.Quality)
	}
	if !contains(backgroundModes, o.BackgroundMode) {
		return fmt.Errorf("%w: background_mode %q", ErrInvalidOptions, o.BackgroundMode)
	}
	if o.CameraAngle != "" && !contains(cameraAngles, o.CameraAngle) {
		return fmt.Errorf("%w: camera_angle %q", ErrInvalidOptions, o.CameraAngle)
	}
	if o.UsageScenario != "" && !contains(usageScenarios, o.UsageScenario) {
		return fmt.Errorf("%w: usage_scenario %q", ErrInvalidOptions, o.UsageScenario)
	}
	switch o.BackgroundMode {
	case BackgroundColor:
		if c := strings.TrimSpace(o.BackgroundColor); c != "" && !hexColorPattern.MatchString(c) {
			return fmt.Errorf("%w: background_color %q is not a hex color", ErrInvalidOptions, c)
		}
	case BackgroundCustom:
		if o.CustomBackground.Empty() {
			return fmt.Errorf("%w: custom_background is required for CUSTOM background", ErrInvalidOptions)
		}
	}
	return nil
}

// SubjectDetails returns the hand-edited details when present, otherwise the
// analyzer output.
func (o EnhancementOptions) SubjectDetails(analysis AnalysisResult) string {
	if d := strings.TrimSpace(o.DetectedSubjectDetails); d != "" {
		return d
	}
	return strings.TrimSpace(analysis.Details)
}

func ParseToolType(s string) (ToolType, error) {
	return parseEnum(s, toolTypes, "tool_type")
}

func ParseAspectRatio(s string) (AspectRatio, error) {
	v := AspectRatio(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if !contains(aspectRatios, v) {
		return "", fmt.Errorf("%w: aspect_ratio %q", ErrInvalidOptions, s)
	}
	return v, nil
}

func ParseQuality(s string) (Quality, error) {
	return parseEnum(s, qualities, "quality")
}

func ParseBackgroundMode(s string) (BackgroundMode, error) {
	return parseEnum(s, backgroundModes, "background_mode")
}

func ParseCameraAngle(s string) (CameraAngle, error) {
	return parseEnum(s, cameraAngles, "camera_angle")
}

func ParseUsageScenario(s string) (UsageScenario, error) {
	return parseEnum(s, usageScenarios, "usage_scenario")
}

// Title renders the tool type for display, e.g. "Food".
func (t ToolType) Title() string {
	return cases.Title(language.English).String(strings.ToLower(string(t)))
}

func (t ToolType) IsFood() bool {
	return t == ToolFood
}

// normalizeEnum maps user spellings like "top-down" or "Eye level" onto the
// canonical upper snake case form.
func normalizeEnum(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return cases.Upper(language.Und).String(s)
}

func parseEnum[T ~string](s string, allowed []T, field string) (T, error) {
	v := T(normalizeEnum(s))
	if !contains(allowed, v) {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrInvalidOptions, field, s)
	}
	return v, nil
}

func contains[T comparable](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}
