// internal/application/events/events.go
//
// Integration events exchanged between the ingestion worker, the chain
// manager and downstream consumers, plus the publisher port they go through.
//
// Dependencies: none (the Kafka adapter lives in infrastructure/messaging)

package events

import (
	"context"
	"time"
)

// Event names double as topic names on the broker.
const (
	TopicRevisionSubmitted = "docrev.revision.submitted"
	TopicDocumentExtracted = "docrev.document.extracted"
	TopicRevisionAdded     = "docrev.revision.added"
	TopicChainAnalyzed     = "docrev.chain.analyzed"
	TopicDeadLetter        = "docrev.dlq"
)

// Publisher sends an event keyed for partitioning.  Keys are chain IDs where
// one exists so that a chain's events stay ordered.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// NopPublisher discards every event.  It backs the CLI, which runs without
// a broker.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// RevisionSubmitted asks the worker to fetch, extract and attach a document.
type RevisionSubmitted struct {
	ChainID          string     `json:"chain_id"`
	DocumentID       string     `json:"document_id"`
	ObjectKey        string     `json:"object_key"`
	Label            string     `json:"label"`
	RevisionNumber   int        `json:"revision_number,omitempty"`
	ParentRevisionID string     `json:"parent_revision_id,omitempty"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
}

// DocumentExtracted reports a finished extraction.
type DocumentExtracted struct {
	DocumentID  string    `json:"document_id"`
	Pages       int       `json:"pages"`
	PagesFailed int       `json:"pages_failed"`
	Comments    int       `json:"comments"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// RevisionAdded reports a revision attached to a chain.
type RevisionAdded struct {
	ChainID           string    `json:"chain_id"`
	RevisionID        string    `json:"revision_id"`
	RevisionNumber    int       `json:"revision_number"`
	DocumentID        string    `json:"document_id"`
	NewComments       int       `json:"new_comments"`
	CarryoverComments int       `json:"carryover_comments"`
	Links             int       `json:"links"`
	RiskScore         float64   `json:"risk_score"`
	RiskLevel         string    `json:"risk_level"`
	AddedAt           time.Time `json:"added_at"`
}

// ChainAnalyzed reports a refreshed chain risk assessment.
type ChainAnalyzed struct {
	ChainID                 string     `json:"chain_id"`
	RiskScore               float64    `json:"risk_score"`
	RiskLevel               string     `json:"risk_level"`
	PredictedCompletionDate *time.Time `json:"predicted_completion_date,omitempty"`
	AnalyzedAt              time.Time  `json:"analyzed_at"`
}

//Personal.AI order the ending
