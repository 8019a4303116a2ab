package revision

import (
	"math"
	"unicode/utf8"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
)

// ComplexityInput holds the comment statistics of one revision.
type ComplexityInput struct {
	TotalComments     int
	CarryoverComments int
	// HighPriorityRatio is the share of the revision's document comments
	// marked high or critical.
	HighPriorityRatio float64
	// AvgCommentLength is the mean comment length in characters.
	AvgCommentLength float64
}

// ComplexityInputFor derives the statistics of rev from the comments of its
// document.
func ComplexityInputFor(rev *Revision, comments []*comment.Comment) ComplexityInput {
	in := ComplexityInput{
		TotalComments:     rev.TotalComments(),
		CarryoverComments: rev.CarryoverCommentCount,
	}
	if len(comments) == 0 {
		return in
	}
	high, runes := 0, 0
	for _, c := range comments {
		if c.Priority.IsHigh() {
			high++
		}
		runes += utf8.RuneCountInString(c.Text)
	}
	in.HighPriorityRatio = float64(high) / float64(len(comments))
	in.AvgCommentLength = float64(runes) / float64(len(comments))
	return in
}

// ComplexityScore sums volume, carryover, priority and length contributions
// and caps the result to [0,100].
func ComplexityScore(in ComplexityInput) float64 {
	score := 0.0

	switch {
	case in.TotalComments > 50:
		score += 30
	case in.TotalComments > 20:
		score += 20
	case in.TotalComments > 10:
		score += 10
	}

	if in.TotalComments > 0 {
		score += clamp01(float64(in.CarryoverComments)/float64(in.TotalComments)) * 25
	}
	score += clamp01(in.HighPriorityRatio) * 25

	switch {
	case in.AvgCommentLength > 200:
		score += 20
	case in.AvgCommentLength > 100:
		score += 10
	}

	return clampScore(score)
}

// complexityMultiplier scales review effort by complexity band.
func complexityMultiplier(complexity float64) float64 {
	switch {
	case complexity <= 25:
		return 1.0
	case complexity <= 50:
		return 1.2
	case complexity <= 75:
		return 1.5
	default:
		return 2.0
	}
}

// EstimatedHours estimates the effort to respond to a revision: two hours
// per comment scaled by complexity, plus one hour per carried-over comment.
func EstimatedHours(in ComplexityInput, complexity float64) float64 {
	hours := float64(in.TotalComments)*2.0*complexityMultiplier(complexity) +
		float64(in.CarryoverComments)*0.5*2.0
	return math.Round(hours*100) / 100
}

// ScoreRevision stores the complexity score and hour estimate on rev.
func ScoreRevision(rev *Revision, comments []*comment.Comment) {
	in := ComplexityInputFor(rev, comments)
	rev.ComplexityScore = ComplexityScore(in)
	rev.EstimatedHours = EstimatedHours(in, rev.ComplexityScore)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampScore(v float64) float64 {
	return math.Round(math.Max(0, math.Min(100, v))*100) / 100
}

//Personal.AI order the ending
