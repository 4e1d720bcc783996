package imagegen

import (
	"fmt"
	"strings"

	"nexiro/internal/domain"
)

// compileInput is what every section builder sees.
type compileInput struct {
	tool    domain.ToolType
	food    bool
	details string
	product string
	style   domain.ResolvedStyle
	opts    domain.EnhancementOptions
}

// sectionBuilder renders one section as a list of lines. Returning no lines
// omits the section.
type sectionBuilder func(in compileInput) []string

// sections are rendered in this order, separated by a blank line.
var sections = []sectionBuilder{
	roleSection,
	subjectSection,
	aestheticsSection,
	compositionSection,
	customInstructionsSection,
	styleSection,
	backgroundSection,
	negativeSection,
}

// Compile renders the instruction document for one generation request. It
// performs no I/O and returns byte-identical output for identical inputs.
func Compile(tool domain.ToolType, analysis domain.AnalysisResult, style domain.ResolvedStyle, opts domain.EnhancementOptions) string {
	in := compileInput{
		tool:    tool,
		food:    tool.IsFood(),
		details: opts.SubjectDetails(analysis),
		product: strings.TrimSpace(opts.ProductDescription),
		style:   style,
		opts:    opts,
	}
	blocks := make([]string, 0, len(sections))
	for _, build := range sections {
		if lines := build(in); len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func roleSection(in compileInput) []string {
	if in.food {
		return []string{
			"ROLE: You are an award-winning Commercial Food Photographer and Retoucher.",
			`GOAL: Produce an 8K UHD, "Foodporn" quality image by compositing the [Source Food] into the requested [Style].`,
		}
	}
	return []string{
		"ROLE: You are an award-winning Commercial Product Photographer specializing in Luxury Goods (Perfume, Cosmetics, Beverages).",
		"GOAL: Produce an 8K UHD Advertising Campaign image by compositing the [Source Product] into the requested [Style].",
	}
}

func subjectSection(in compileInput) []string {
	if in.food {
		lines := []string{
			"1. SUBJECT RESTORATION & LOCKING (CRITICAL):",
			"- The [Source Food] is the HERO. Do not morph it.",
		}
		if in.product != "" {
			lines = append(lines, fmt.Sprintf(`- IDENTITY: The dish is a "%s". Ensure authenticity.`, in.product))
		}
		lines = append(lines, "- FIX DEFORMITIES: Repair blurry or broken textures.")
		if in.details != "" {
			lines = append(lines, fmt.Sprintf("- INGREDIENTS: Explicitly render these ingredients with high-fidelity: %s.", in.details))
		} else {
			lines = append(lines, "- INGREDIENTS: Preserve visible ingredients.")
		}
		return append(lines, "- GEOMETRY: Keep plating structure 90% identical.")
	}

	lines := []string{
		"1. SUBJECT LOCKING (NON-NEGOTIABLE):",
		"- The [Source Product] (bottle, box, container) must be PRESERVED EXACTLY.",
	}
	if in.details != "" {
		lines = append(lines, fmt.Sprintf("- TEXT & LOGOS: Ensure these brand details remain legible and unaltered: %s.", in.details))
	} else {
		lines = append(lines, "- TEXT & LOGOS: Do not hallucinate new text. Preserve original branding.")
	}
	lines = append(lines, "- SHAPE: Maintain the exact silhouette and aspect ratio of the product packaging.")
	if in.product != "" {
		lines = append(lines, fmt.Sprintf(`- CONTEXT: The product is "%s".`, in.product))
	}
	return lines
}

func aestheticsSection(in compileInput) []string {
	if in.food {
		return []string{
			"2. AESTHETICS:",
			`- TEXTURE: "Phased Array Ultrasonic Texture" logic: micro-details on crusts, muscle fibers, moisture.`,
			"- GLISTENING: Specular highlights on fats/glazes.",
			"- ATMOSPHERE: Cinematic lighting.",
		}
	}
	return []string{
		"2. MATERIAL PHYSICS & AESTHETICS:",
		"- GLASS & LIQUID: Simulate correct Index of Refraction (IOR). Render realistic caustics, internal reflections, and liquid color/viscosity.",
		"- MATERIALS: Brushed metal caps, matte plastic containers, gold foil stamping must look hyper-realistic.",
		"- SURFACES: High-end studio polish. No dust, no scratches (unless requested).",
		"- LIGHTING: Commercial studio setup. Rim lighting to define edges. Softbox reflections on glossy surfaces.",
	}
}

var cameraAngleClauses = map[domain.CameraAngle]string{
	domain.AngleTopDown:   "Flat Lay (90° Overhead). Geometric alignment.",
	domain.AngleEyeLevel:  "Eye Level (0° Head-on). Hero stance.",
	domain.AngleMacro:     "Macro Close-up. Shallow depth of field. Focus on texture/material details.",
	domain.AngleFortyFive: "Standard Perspective (45°). Natural depth.",
}

const defaultCameraAngleClause = "Standard"

var usageScenarioClauses = map[domain.UsageScenario]func(food bool) string{
	domain.ScenarioEcommerceMenu: func(food bool) string {
		label := "Product Catalog"
		if food {
			label = "E-Commerce Menu"
		}
		return label + ". Clean composition. Entire subject visible. Neutral/Professional styling."
	},
	domain.ScenarioWebsiteHero: func(bool) string {
		return "Website Hero Header. Wide cinematic shot. Negative space for text. Dramatic lighting."
	},
	domain.ScenarioSocialLifestyle: lifestyleClause,
}

func lifestyleClause(food bool) string {
	vibe := "Contextual environment (e.g., vanity table, bathroom counter, outdoor nature)."
	if food {
		vibe = "Organic, messy-perfect vibe."
	}
	return "Social Media Lifestyle. " + vibe + " Atmospheric depth of field."
}

// CameraAngleClause expands an angle; unknown or unset angles read "Standard".
func CameraAngleClause(angle domain.CameraAngle) string {
	if clause, ok := cameraAngleClauses[angle]; ok {
		return clause
	}
	return defaultCameraAngleClause
}

// UsageScenarioClause expands a scenario; anything unknown is lifestyle.
func UsageScenarioClause(scenario domain.UsageScenario, tool domain.ToolType) string {
	build, ok := usageScenarioClauses[scenario]
	if !ok {
		build = lifestyleClause
	}
	return build(tool.IsFood())
}

func compositionSection(in compileInput) []string {
	return []string{
		"2.5 COMPOSITION & CAMERA CONTROL:",
		fmt.Sprintf("- CAMERA ANGLE: %s", withPeriod(CameraAngleClause(in.opts.CameraAngle))),
		fmt.Sprintf("- USAGE SCENARIO: %s", UsageScenarioClause(in.opts.UsageScenario, in.tool)),
	}
}

func withPeriod(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

func customInstructionsSection(in compileInput) []string {
	custom := strings.TrimSpace(in.opts.CustomInstructions)
	if custom == "" {
		return nil
	}
	return []string{
		"2.6 SPECIAL INSTRUCTIONS (PRIORITY OVERWRITE):",
		fmt.Sprintf(`- STRICT ADHERENCE REQUIRED: "%s"`, custom),
	}
}

var styleBuilders = map[domain.StyleKind]sectionBuilder{
	domain.StyleImage: imageStyleSection,
	domain.StyleText:  textStyleSection,
}

func styleSection(in compileInput) []string {
	build, ok := styleBuilders[in.style.Kind]
	if !ok {
		build = textStyleSection
	}
	return build(in)
}

func imageStyleSection(in compileInput) []string {
	lines := []string{
		"3. STYLE TRANSFER (VISUAL REFERENCE):",
		"- LIGHTING & COLOR: Copy light direction, hardness, and color palette from [Reference Image].",
		"- ENVIRONMENT: Place source into an environment matching the reference's texture/bokeh.",
	}
	if len(in.opts.ExcludedProps) > 0 {
		lines = append(lines,
			"",
			"4. EXCLUSION INSTRUCTIONS:",
			fmt.Sprintf("- Do NOT include these props from the reference: [%s].", strings.Join(in.opts.ExcludedProps, ", ")),
		)
	}
	return lines
}

func textStyleSection(in compileInput) []string {
	text := strings.TrimSpace(in.style.Text)
	if text == "" {
		text = domain.DefaultStyleDescription
	}
	return []string{
		"3. STYLE EXECUTION (TEXT DESCRIPTION):",
		fmt.Sprintf(`- Execute: "%s"`, text),
	}
}

var backgroundClauses = map[domain.BackgroundMode]func(opts domain.EnhancementOptions) string{
	domain.BackgroundTransparent: func(domain.EnhancementOptions) string {
		return "Pure White or Transparent. Isolated subject."
	},
	domain.BackgroundColor: func(opts domain.EnhancementOptions) string {
		color := strings.TrimSpace(opts.BackgroundColor)
		if color == "" {
			color = domain.DefaultBackgroundColor
		}
		return fmt.Sprintf("Solid studio background in color %s. Matte finish.", color)
	},
	domain.BackgroundCustom: func(domain.EnhancementOptions) string {
		return "Composite subject naturally onto [Custom Background]. Match shadows/perspective."
	},
	domain.BackgroundKeepOriginal: func(domain.EnhancementOptions) string {
		return "Keep original background, denoise and upscale."
	},
	domain.BackgroundReferenceStyle: referenceBackground,
}

func referenceBackground(domain.EnhancementOptions) string {
	return "Generate background matching the Style Input."
}

// BackgroundClause is the single background line for a mode.
func BackgroundClause(opts domain.EnhancementOptions) string {
	build, ok := backgroundClauses[opts.BackgroundMode]
	if !ok {
		build = referenceBackground
	}
	return "- BACKGROUND: " + build(opts)
}

func backgroundSection(in compileInput) []string {
	return []string{BackgroundClause(in.opts)}
}

var baseNegatives = []string{
	"Low res, blur, noise, grain, jpeg artifacts.",
	"CGI, 3D render, painting, cartoon.",
	"Deformed subject, floating objects.",
}

// NegativeConstraints lists the fixed negative prompt lines for a tool.
func NegativeConstraints(tool domain.ToolType) []string {
	out := make([]string, 0, len(baseNegatives)+1)
	out = append(out, baseNegatives...)
	if tool.IsFood() {
		return append(out, "Rotten food, unappetizing colors.")
	}
	return append(out, "Broken glass, smudged labels, warped text, wrong logo spelling.")
}

func negativeSection(in compileInput) []string {
	lines := []string{"NEGATIVE PROMPT:"}
	for _, item := range NegativeConstraints(in.tool) {
		lines = append(lines, "- "+item)
	}
	return lines
}
