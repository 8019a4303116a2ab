// Package revision models revision chains: the ordered submissions of one
// logical document, their review state, and the scores derived from them.
package revision

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// DefaultMaxAllowedRevisions applies to chains created without a limit.
const DefaultMaxAllowedRevisions = 5

// ─────────────────────────────────────────────────────────────────────────────
// Status
// ─────────────────────────────────────────────────────────────────────────────

// Status is the review state of a revision.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusCommentsReceived Status = "comments_received"
	StatusResponsesPending Status = "responses_pending"
	StatusCompleted        Status = "completed"
	StatusSuperseded       Status = "superseded"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusDraft, StatusSubmitted, StatusUnderReview, StatusCommentsReceived,
	StatusResponsesPending, StatusCompleted, StatusSuperseded,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is expected from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSuperseded
}

// ParseStatus parses a status name, accepting hyphens or spaces for
// underscores.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(v))))
	if !s.IsValid() {
		return "", ErrInvalidStatus.WithDetail(v)
	}
	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Risk level
// ─────────────────────────────────────────────────────────────────────────────

// RiskLevel bands a chain's risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	ErrDuplicateRevision     = errors.New(errors.ErrCodeDuplicateRevision, "revision number already exists in chain")
	ErrInvalidParent         = errors.New(errors.ErrCodeInvalidParent, "invalid parent revision")
	ErrInvalidStatus         = errors.New(errors.ErrCodeInvalidStatus, "invalid revision status")
	ErrChainNotFound         = errors.New(errors.ErrCodeChainNotFound, "revision chain not found")
	ErrRevisionNotFound      = errors.New(errors.ErrCodeRevisionNotFound, "revision not found")
	ErrInvalidRevisionNumber = errors.New(errors.ErrCodeInvalidRevisionNumber, "revision number must follow the current revision")
	ErrChainArchived         = errors.New(errors.ErrCodeChainArchived, "revision chain is archived")
)

// ─────────────────────────────────────────────────────────────────────────────
// Chain
// ─────────────────────────────────────────────────────────────────────────────

// Chain groups every revision of one logical document.  It is archived,
// never deleted.
type Chain struct {
	ID                      string     `json:"id"`
	Title                   string     `json:"title"`
	CurrentRevisionNumber   int        `json:"current_revision_number"`
	TotalRevisions          int        `json:"total_revisions"`
	MaxAllowedRevisions     int        `json:"max_allowed_revisions"`
	RiskScore               float64    `json:"risk_score"`
	RiskLevel               RiskLevel  `json:"risk_level"`
	Recommendation          string     `json:"recommendation,omitempty"`
	PredictedCompletionDate *time.Time `json:"predicted_completion_date,omitempty"`
	Archived                bool       `json:"archived"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewChain creates an empty chain.  A non-positive maxAllowed uses
// DefaultMaxAllowedRevisions.
func NewChain(title string, maxAllowed int) (*Chain, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.NewValidation("chain title cannot be empty")
	}
	if maxAllowed <= 0 {
		maxAllowed = DefaultMaxAllowedRevisions
	}
	now := time.Now().UTC()
	return &Chain{
		ID:                  uuid.NewString(),
		Title:               title,
		MaxAllowedRevisions: maxAllowed,
		RiskLevel:           RiskLow,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// NextRevisionNumber is the number the next added revision receives.
func (c *Chain) NextRevisionNumber() int {
	return c.CurrentRevisionNumber + 1
}

// RecordRevision advances the chain counters for a newly added revision.
func (c *Chain) RecordRevision(now time.Time) {
	c.CurrentRevisionNumber++
	c.TotalRevisions++
	c.UpdatedAt = now
}

// ApplyAssessment stores a risk assessment on the chain.
func (c *Chain) ApplyAssessment(a Assessment, now time.Time) {
	c.RiskScore = a.Score
	c.RiskLevel = a.Level
	c.Recommendation = a.Recommendation
	c.PredictedCompletionDate = a.PredictedCompletionDate
	c.UpdatedAt = now
}

// ─────────────────────────────────────────────────────────────────────────────
// Revision
// ─────────────────────────────────────────────────────────────────────────────

// Revision is one submission within a chain.
type Revision struct {
	ID                    string     `json:"id"`
	ChainID               string     `json:"chain_id"`
	DocumentID            string     `json:"document_id"`
	Label                 string     `json:"label"`
	RevisionNumber        int        `json:"revision_number"`
	ParentRevisionID      *string    `json:"parent_revision_id,omitempty"`
	Status                Status     `json:"status"`
	NewCommentCount       int        `json:"new_comment_count"`
	CarryoverCommentCount int        `json:"carryover_comment_count"`
	ResolvedCommentCount  int        `json:"resolved_comment_count"`
	ComplexityScore       float64    `json:"complexity_score"`
	EstimatedHours        float64    `json:"estimated_hours"`
	SubmittedDate         time.Time  `json:"submitted_date"`
	CompletedDate         *time.Time `json:"completed_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TotalComments is the number of comments raised on the revision.
func (r *Revision) TotalComments() int {
	return r.NewCommentCount + r.CarryoverCommentCount
}

// ResolutionRate is the resolved share of the revision's comments.  A
// revision without comments counts as fully resolved.
func (r *Revision) ResolutionRate() float64 {
	total := r.TotalComments()
	if total == 0 {
		return 1
	}
	rate := float64(r.ResolvedCommentCount) / float64(total)
	if rate > 1 {
		return 1
	}
	return rate
}

// SetCommentCounts splits total comments into carryover and new.
func (r *Revision) SetCommentCounts(total, carryover int) {
	if carryover > total {
		carryover = total
	}
	r.CarryoverCommentCount = carryover
	r.NewCommentCount = total - carryover
}

// TransitionTo moves the revision to status.  Completion stamps
// CompletedDate the first time only.
func (r *Revision) TransitionTo(status Status, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus.WithDetail(string(status))
	}
	r.Status = status
	if status == StatusCompleted && r.CompletedDate == nil {
		completed := now
		r.CompletedDate = &completed
	}
	r.UpdatedAt = now
	return nil
}

// Supersede marks a non-terminal revision as superseded by a later one.  It
// reports whether the status changed.
func (r *Revision) Supersede(now time.Time) bool {
	if r.Status.IsTerminal() {
		return false
	}
	r.Status = StatusSuperseded
	r.UpdatedAt = now
	return true
}

//Personal.AI order the ending
