package markup

import "math"

// ---------------------------------------------------------------------------
// Colour classes and rule tags
// ---------------------------------------------------------------------------

// ColorClass is the outcome of classifying a markup colour.
type ColorClass string

const (
	ColorRed    ColorClass = "red"
	ColorYellow ColorClass = "yellow"
	ColorNone   ColorClass = "none"
)

// RedRule names the guard that accepted a colour as red.
type RedRule string

const (
	RedRuleDominant  RedRule = "dominant"  // r>0.5, clear lead over g and b
	RedRuleRatio     RedRule = "ratio"     // r>0.3, 1.3x both other channels
	RedRuleSaturated RedRule = "saturated" // r>0.7, g and b below 0.4
	RedRuleOverPair  RedRule = "over_pair" // r>0.4, beats (g+b)/1.5 and max(g,b) by 0.15
	RedRuleGap       RedRule = "gap"       // r>0.5, 0.2 over g, 0.1 over b
)

// YellowRule names the guard that accepted a colour as yellow.
type YellowRule string

const (
	YellowRuleWarm     YellowRule = "warm"     // r,g>0.6, blue well below their mean
	YellowRuleBright   YellowRule = "bright"   // r,g>0.8, b<0.5
	YellowRuleBalanced YellowRule = "balanced" // r,g>0.6, b<0.4, r≈g
)

type colorGuard[T ~string] struct {
	rule  T
	match func(r, g, b float64) bool
}

// redGuards is evaluated in order; the first match is reported.
var redGuards = []colorGuard[RedRule]{
	{RedRuleDominant, func(r, g, b float64) bool {
		return r > 0.5 && r > g && r > b && (r-g) > 0.1 && (r-b) > 0.1
	}},
	{RedRuleRatio, func(r, g, b float64) bool {
		return r > 0.3 && r > 1.3*g && r > 1.3*b && (r-g) > 0.08 && (r-b) > 0.08
	}},
	{RedRuleSaturated, func(r, g, b float64) bool {
		return r > 0.7 && g < 0.4 && b < 0.4
	}},
	{RedRuleOverPair, func(r, g, b float64) bool {
		return r > 0.4 && r > (g+b)/1.5 && (r-math.Max(g, b)) > 0.15
	}},
	{RedRuleGap, func(r, g, b float64) bool {
		return r > 0.5 && (r-g) > 0.2 && r > b+0.1
	}},
}

var yellowGuards = []colorGuard[YellowRule]{
	{YellowRuleWarm, func(r, g, b float64) bool {
		return g > 0.6 && r > 0.6 && (r+g)/2 > b+0.2 && math.Abs(r-g) < 0.3
	}},
	{YellowRuleBright, func(r, g, b float64) bool {
		return r > 0.8 && g > 0.8 && b < 0.5
	}},
	{YellowRuleBalanced, func(r, g, b float64) bool {
		return r > 0.6 && g > 0.6 && b < 0.4 && math.Abs(r-g) < 0.2
	}},
}

// ---------------------------------------------------------------------------
// Normalisation
// ---------------------------------------------------------------------------

// Normalize returns the first three components as an RGB in [0,1].  When any
// of them exceeds 1.0 the triple is taken to be 0–255 and divided by 255.
// Fewer than three components is reported as not ok.
func Normalize(components ...float64) (RGB, bool) {
	if len(components) < 3 {
		return RGB{}, false
	}
	c := RGB{components[0], components[1], components[2]}
	if c[0] > 1 || c[1] > 1 || c[2] > 1 {
		c[0], c[1], c[2] = c[0]/255, c[1]/255, c[2]/255
	}
	return c, true
}

func isNearGray(r, g, b float64) bool {
	return math.Abs(r-g) < 0.05 && math.Abs(g-b) < 0.05
}

// ---------------------------------------------------------------------------
// Predicates
// ---------------------------------------------------------------------------

// MatchRed reports the first red rule accepting the colour.  Near-grayscale
// colours never match.
func MatchRed(components ...float64) (RedRule, bool) {
	c, ok := Normalize(components...)
	if !ok {
		return "", false
	}
	r, g, b := c[0], c[1], c[2]
	if isNearGray(r, g, b) {
		return "", false
	}
	for _, guard := range redGuards {
		if guard.match(r, g, b) {
			return guard.rule, true
		}
	}
	return "", false
}

// MatchYellow reports the first yellow rule accepting the colour.
func MatchYellow(components ...float64) (YellowRule, bool) {
	c, ok := Normalize(components...)
	if !ok {
		return "", false
	}
	for _, guard := range yellowGuards {
		if guard.match(c[0], c[1], c[2]) {
			return guard.rule, true
		}
	}
	return "", false
}

// IsRed reports whether the colour reads as a red review mark.
func IsRed(components ...float64) bool {
	_, ok := MatchRed(components...)
	return ok
}

// IsYellow reports whether the colour reads as a yellow highlight.
func IsYellow(components ...float64) bool {
	_, ok := MatchYellow(components...)
	return ok
}

// ClassifyColor tests yellow before red, so a colour matching both is yellow.
func ClassifyColor(components ...float64) ColorClass {
	if IsYellow(components...) {
		return ColorYellow
	}
	if IsRed(components...) {
		return ColorRed
	}
	return ColorNone
}

// ---------------------------------------------------------------------------
// Text run colours
// ---------------------------------------------------------------------------

// RunColor is a text run colour as reported by a page source: a packed
// 0xRRGGBB integer, or explicit components when Components is non-empty.
type RunColor struct {
	Packed     int
	Components []float64
}

// PackedColor wraps a 24-bit 0xRRGGBB value.
func PackedColor(v int) RunColor { return RunColor{Packed: v} }

// ComponentColor wraps explicit colour components.
func ComponentColor(components ...float64) RunColor { return RunColor{Components: components} }

// Values returns the components to classify, unpacking a packed value into
// [0,1] channels.
func (c RunColor) Values() []float64 {
	if len(c.Components) > 0 {
		return c.Components
	}
	v := c.Packed & 0xFFFFFF
	return []float64{
		float64((v>>16)&0xFF) / 255,
		float64((v>>8)&0xFF) / 255,
		float64(v&0xFF) / 255,
	}
}

// RGB returns the normalised colour, or false for malformed components.
func (c RunColor) RGB() (RGB, bool) {
	return Normalize(c.Values()...)
}

//Personal.AI order the ending
