package revision

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tunables
// ─────────────────────────────────────────────────────────────────────────────

const (
	revisionPressureWeight = 40.0
	unresolvedWeight       = 30.0
	carryoverTrendWeight   = 10.0

	// A latest revision untouched for more than stagnationAfterDays adds up
	// to stagnationCap points, stagnationPerPeriod per 30 days.
	stagnationAfterDays = 30
	stagnationPerPeriod = 15.0
	stagnationCap       = 20.0

	carryoverWindow = 3

	// DefaultRemainingRevisionFactor scales the unresolved share of the
	// latest revision into an estimate of revisions still to come.
	DefaultRemainingRevisionFactor = 3.0
)

// LevelFor bands a risk score.
func LevelFor(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Assessment
// ─────────────────────────────────────────────────────────────────────────────

// RiskFactors are the individual contributions to a risk score.
type RiskFactors struct {
	RevisionPressure float64 `json:"revision_pressure"`
	Unresolved       float64 `json:"unresolved"`
	Stagnation       float64 `json:"stagnation"`
	CarryoverTrend   float64 `json:"carryover_trend"`
	DaysSinceUpdate  int     `json:"days_since_update"`
}

// Assessment is the chain-wide outcome of risk scoring.
type Assessment struct {
	Score                   float64     `json:"score"`
	Level                   RiskLevel   `json:"level"`
	Recommendation          string      `json:"recommendation"`
	PredictedCompletionDate *time.Time  `json:"predicted_completion_date,omitempty"`
	Factors                 RiskFactors `json:"factors"`
}

// RiskScorer scores revision chains.  It reads the time through an injected
// clock and is otherwise pure.
type RiskScorer struct {
	now             func() time.Time
	remainingFactor float64
}

// RiskOption configures a RiskScorer.
type RiskOption func(*RiskScorer)

// WithClock sets the clock used for stagnation and predictions.
func WithClock(now func() time.Time) RiskOption {
	return func(s *RiskScorer) { s.now = now }
}

// WithRemainingRevisionFactor overrides DefaultRemainingRevisionFactor.
func WithRemainingRevisionFactor(f float64) RiskOption {
	return func(s *RiskScorer) {
		if f > 0 {
			s.remainingFactor = f
		}
	}
}

// NewRiskScorer returns a scorer using the wall clock unless overridden.
func NewRiskScorer(opts ...RiskOption) *RiskScorer {
	s := &RiskScorer{
		now:             time.Now,
		remainingFactor: DefaultRemainingRevisionFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess scores chain over its revisions, in any order.
func (s *RiskScorer) Assess(chain *Chain, revisions []*Revision) Assessment {
	revs := sortedByNumber(revisions)
	score, factors := s.score(chain, revs)
	level := LevelFor(score)
	return Assessment{
		Score:                   score,
		Level:                   level,
		Recommendation:          recommendation(chain, revs, level),
		PredictedCompletionDate: s.predictCompletion(revs),
		Factors:                 factors,
	}
}

// Score returns the capped risk score of chain and its factors.
func (s *RiskScorer) Score(chain *Chain, revisions []*Revision) (float64, RiskFactors) {
	return s.score(chain, sortedByNumber(revisions))
}

func (s *RiskScorer) score(chain *Chain, revs []*Revision) (float64, RiskFactors) {
	var f RiskFactors

	maxAllowed := chain.MaxAllowedRevisions
	if maxAllowed <= 0 {
		maxAllowed = DefaultMaxAllowedRevisions
	}
	f.RevisionPressure = float64(chain.CurrentRevisionNumber) / float64(maxAllowed) * revisionPressureWeight

	total, resolved := 0, 0
	for _, r := range revs {
		total += r.TotalComments()
		resolved += r.ResolvedCommentCount
	}
	if total > 0 {
		f.Unresolved = clamp01(float64(total-resolved)/float64(total)) * unresolvedWeight
	}

	if len(revs) > 0 {
		latest := revs[len(revs)-1]
		f.DaysSinceUpdate = int(s.now().Sub(latest.UpdatedAt).Hours() / 24)
		if f.DaysSinceUpdate > stagnationAfterDays {
			f.Stagnation = math.Min(float64(f.DaysSinceUpdate)/30*stagnationPerPeriod, stagnationCap)
		}
	}

	if len(revs) >= 2 {
		window := revs[max(0, len(revs)-carryoverWindow):]
		carry, all := 0, 0
		for _, r := range window {
			carry += r.CarryoverCommentCount
			all += r.TotalComments()
		}
		// Equal window lengths cancel, so the ratio of averages is the
		// ratio of sums.
		if all > 0 {
			f.CarryoverTrend = float64(carry) / float64(all) * carryoverTrendWeight
		}
	}

	return clampScore(f.RevisionPressure + f.Unresolved + f.Stagnation + f.CarryoverTrend), f
}

// ─────────────────────────────────────────────────────────────────────────────
// Recommendation
// ─────────────────────────────────────────────────────────────────────────────

var closingActions = map[RiskLevel]string{
	RiskCritical: "Immediate action: hold a comment resolution workshop with all reviewers, freeze scope changes, and agree a close-out plan.",
	RiskHigh:     "Action: prioritise carryover comments and confirm responses with reviewers before the next submission.",
	RiskMedium:   "Monitor: track open comments and confirm every response before resubmitting.",
	RiskLow:      "On track: continue the normal review cycle.",
}

// recommendation composes the advisory text for a chain at level.
func recommendation(chain *Chain, revs []*Revision, level RiskLevel) string {
	var lines []string

	switch headroom := chain.MaxAllowedRevisions - chain.CurrentRevisionNumber; {
	case headroom <= 0:
		lines = append(lines, fmt.Sprintf(
			"CRITICAL: revision limit reached (%d of %d). Escalate to the document owner before any further submission.",
			chain.CurrentRevisionNumber, chain.MaxAllowedRevisions))
	case headroom == 1:
		lines = append(lines, fmt.Sprintf(
			"HIGH PRIORITY: one revision remains before the limit (%d of %d). The next submission must close all open comments.",
			chain.CurrentRevisionNumber, chain.MaxAllowedRevisions))
	}

	if n := len(revs); n >= 2 && revs[n-1].NewCommentCount > revs[n-2].NewCommentCount {
		lines = append(lines, fmt.Sprintf(
			"TREND ALERT: new comments rose from %d to %d in revision %s.",
			revs[n-2].NewCommentCount, revs[n-1].NewCommentCount, revs[n-1].Label))
	}

	lines = append(lines, closingActions[level])
	return strings.Join(lines, "\n")
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion prediction
// ─────────────────────────────────────────────────────────────────────────────

// PredictCompletion estimates when the chain will close, or returns nil when
// the history holds no completed-to-resubmitted gap.
func (s *RiskScorer) PredictCompletion(revisions []*Revision) *time.Time {
	return s.predictCompletion(sortedByNumber(revisions))
}

func (s *RiskScorer) predictCompletion(revs []*Revision) *time.Time {
	if len(revs) < 2 {
		return nil
	}

	var gaps []float64
	for i := 0; i+1 < len(revs); i++ {
		done := revs[i].CompletedDate
		next := revs[i+1].SubmittedDate
		if done == nil || next.IsZero() {
			continue
		}
		gaps = append(gaps, math.Max(0, next.Sub(*done).Hours()/24))
	}
	if len(gaps) == 0 {
		return nil
	}

	sum := 0.0
	for _, g := range gaps {
		sum += g
	}
	avgGap := sum / float64(len(gaps))

	remaining := max(1, int((1-revs[len(revs)-1].ResolutionRate())*s.remainingFactor))
	days := int(math.Round(avgGap * float64(remaining)))

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	predicted := today.AddDate(0, 0, days)
	return &predicted
}

func sortedByNumber(revisions []*Revision) []*Revision {
	revs := make([]*Revision, len(revisions))
	copy(revs, revisions)
	sort.SliceStable(revs, func(i, j int) bool {
		return revs[i].RevisionNumber < revs[j].RevisionNumber
	})
	return revs
}

//Personal.AI order the ending
