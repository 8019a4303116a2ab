// Package comment models review comments recovered from marked-up drawings
// and the links that track a comment from one revision to the next.
package comment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Priority
// ─────────────────────────────────────────────────────────────────────────────

// Priority is the reviewer-assigned weight of a comment.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IsHigh reports whether p counts towards a revision's high-priority ratio.
func (p Priority) IsHigh() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// ParsePriority parses a case-insensitive priority name.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", errors.New(errors.ErrCodeInvalidPriority, "invalid priority").WithDetail(s)
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Comment
// ─────────────────────────────────────────────────────────────────────────────

// Comment is one cleaned, deduplicated review comment of a document.  A
// re-extraction replaces the whole set of a document; comments are never
// merged.
type Comment struct {
	ID              string             `json:"id"`
	DocumentID      string             `json:"document_id"`
	SerialNumber    int                `json:"serial_number"`
	Page            int                `json:"page"`
	ClauseReference string             `json:"clause_reference,omitempty"`
	Text            string             `json:"text"`
	Kind            markup.Kind        `json:"kind"`
	Color           markup.RGB         `json:"color"`
	BoundingBox     markup.BoundingBox `json:"bounding_box"`
	Priority        Priority           `json:"priority"`
	CreatedAt       time.Time          `json:"created_at"`
}

// NewComment builds a comment from a cleaned markup item.  Priority defaults
// to medium.
func NewComment(documentID string, serial int, item markup.RawItem, text, clause string) (*Comment, error) {
	if serial < 1 {
		return nil, errors.NewValidation("serial number must be positive")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidation("comment text cannot be empty")
	}
	if !item.Kind.Valid() {
		return nil, errors.NewValidation("invalid markup kind: " + string(item.Kind))
	}
	return &Comment{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		SerialNumber:    serial,
		Page:            item.Page,
		ClauseReference: clause,
		Text:            text,
		Kind:            item.Kind,
		Color:           item.Color,
		BoundingBox:     item.BoundingBox,
		Priority:        PriorityMedium,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Validate checks the invariants a persisted comment must hold.
func (c *Comment) Validate() error {
	if c.ID == "" {
		return errors.NewValidation("comment ID cannot be empty")
	}
	if c.SerialNumber < 1 {
		return errors.NewValidation("serial number must be positive")
	}
	if c.Page < 1 {
		return errors.NewValidation("page must be 1-based")
	}
	if strings.TrimSpace(c.Text) == "" {
		return errors.NewValidation("comment text cannot be empty")
	}
	if !c.Kind.Valid() {
		return errors.NewValidation("invalid markup kind: " + string(c.Kind))
	}
	if !c.Priority.IsValid() {
		return errors.New(errors.ErrCodeInvalidPriority, "invalid priority").WithDetail(string(c.Priority))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Link
// ─────────────────────────────────────────────────────────────────────────────

// LinkType classifies how a comment relates to one in a later revision.
type LinkType string

const (
	LinkIdentical        LinkType = "identical"
	LinkModified         LinkType = "modified"
	LinkRelated          LinkType = "related"
	LinkResolvedReopened LinkType = "resolved_reopened"
)

// IsValid reports whether t is a known link type.
func (t LinkType) IsValid() bool {
	switch t {
	case LinkIdentical, LinkModified, LinkRelated, LinkResolvedReopened:
		return true
	}
	return false
}

// IsStrong reports whether t asserts the target is the same comment.
func (t LinkType) IsStrong() bool {
	return t == LinkIdentical || t == LinkModified
}

// Link is a directed edge from a comment in one revision to a comment in a
// later revision.
type Link struct {
	ID               string    `json:"id"`
	SourceCommentID  string    `json:"source_comment_id"`
	TargetCommentID  string    `json:"target_comment_id"`
	SourceRevisionID string    `json:"source_revision_id,omitempty"`
	TargetRevisionID string    `json:"target_revision_id,omitempty"`
	LinkType         LinkType  `json:"link_type"`
	SimilarityScore  float64   `json:"similarity_score"`
	AIDetected       bool      `json:"ai_detected"`
	Confidence       float64   `json:"confidence"`
	CreatedAt        time.Time `json:"created_at"`

	// Source and Target are the linked comments when the link was detected
	// in this process; they are not persisted.
	Source *Comment `json:"-"`
	Target *Comment `json:"-"`
}

// BindRevisions stamps the revision pair onto every link.
func BindRevisions(links []*Link, sourceRevisionID, targetRevisionID string) {
	for _, l := range links {
		l.SourceRevisionID = sourceRevisionID
		l.TargetRevisionID = targetRevisionID
	}
}

//Personal.AI order the ending
