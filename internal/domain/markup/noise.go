package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoiseRule names the drawing convention that marked a text as noise.
type NoiseRule string

const (
	NoiseEmpty           NoiseRule = "empty"
	NoiseCADArtifact     NoiseRule = "cad_artifact"
	NoiseNumeric         NoiseRule = "numeric"
	NoiseElevationMarker NoiseRule = "elevation_marker"
	NoiseDrawingCode     NoiseRule = "drawing_code"
	NoiseDimensionTag    NoiseRule = "dimension_tag"
)

var (
	numericOnlyRe     = regexp.MustCompile(`^[\d\s./-]+$`)
	elevationMarkerRe = regexp.MustCompile(`(?i)\b(?:EL|RACK)\s*[.:=]?\s*[+-]?\d`)
	drawingCodeRe     = regexp.MustCompile(`^[A-Z]+\d+[-\d]*$`)
	dimensionTagRe    = regexp.MustCompile(`^[A-Za-z0-9+.\-/ ]+$`)
	dimensionCueRe    = regexp.MustCompile(`(?i)\d\.\d|^[+-]\d|\b(?:el|ffl|tos|bos|cl)\b`)
)

// CAD export artefacts that surface as text on vectorised drawings.
var cadArtifactTerms = []string{"autocad", "shx text", "shx"}

type noiseGuard struct {
	rule  NoiseRule
	match func(trimmed string, words int) bool
}

// noiseGuards is evaluated in order; the first match is reported.
var noiseGuards = []noiseGuard{
	{NoiseEmpty, func(s string, _ int) bool {
		return s == ""
	}},
	{NoiseCADArtifact, func(s string, _ int) bool {
		lower := strings.ToLower(s)
		for _, term := range cadArtifactTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}},
	{NoiseNumeric, func(s string, words int) bool {
		return words <= 2 && numericOnlyRe.MatchString(s)
	}},
	{NoiseElevationMarker, func(s string, words int) bool {
		return words <= 4 && elevationMarkerRe.MatchString(s)
	}},
	{NoiseDrawingCode, func(s string, _ int) bool {
		return utf8.RuneCountInString(s) <= 20 && drawingCodeRe.MatchString(s)
	}},
	{NoiseDimensionTag, func(s string, words int) bool {
		return words <= 2 && utf8.RuneCountInString(s) <= 12 &&
			dimensionTagRe.MatchString(s) && dimensionCueRe.MatchString(s)
	}},
}

// ClassifyNoise reports which drawing convention, if any, marks text as
// noise rather than a reviewer comment.
func ClassifyNoise(text string) (NoiseRule, bool) {
	trimmed := strings.TrimSpace(text)
	words := len(strings.Fields(trimmed))
	for _, guard := range noiseGuards {
		if guard.match(trimmed, words) {
			return guard.rule, true
		}
	}
	return "", false
}

// IsDrawingNoise reports whether text is drawing furniture (dimensions,
// elevation tags, CAD artefacts, tag codes) rather than a comment.
func IsDrawingNoise(text string) bool {
	_, noisy := ClassifyNoise(text)
	return noisy
}

//Personal.AI order the ending
