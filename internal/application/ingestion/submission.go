// internal/application/ingestion/submission.go
//
// Handles a submitted revision end to end: ingest the document, then attach
// it to its chain.  A claim keyed by chain and document suppresses duplicate
// deliveries while one is in flight or after it succeeded.

package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	domainRevision "github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// Claimer records which submissions have been taken.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// SubmissionResult is the outcome of one handled submission.  Both fields
// are nil when the submission was a duplicate.
type SubmissionResult struct {
	Ingestion *Result
	Revision  *revision.AddRevisionResult
}

// SubmissionHandler runs ingestion followed by AddRevision.
type SubmissionHandler struct {
	ingest   Service
	chains   revision.ChainService
	claimer  Claimer
	claimTTL time.Duration
	logger   logging.Logger
}

// NewSubmissionHandler wires a handler.  claimer may be nil, in which case
// every delivery is processed.
func NewSubmissionHandler(ingest Service, chains revision.ChainService, claimer Claimer, claimTTL time.Duration, logger logging.Logger) *SubmissionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if claimTTL <= 0 {
		claimTTL = 24 * time.Hour
	}
	return &SubmissionHandler{
		ingest:   ingest,
		chains:   chains,
		claimer:  claimer,
		claimTTL: claimTTL,
		logger:   logger.Named("submission"),
	}
}

func validateSubmission(ev events.RevisionSubmitted) error {
	switch {
	case strings.TrimSpace(ev.ChainID) == "":
		return errors.NewValidation("chain id is required")
	case strings.TrimSpace(ev.DocumentID) == "":
		return errors.NewValidation("document id is required")
	case strings.TrimSpace(ev.ObjectKey) == "":
		return errors.NewValidation("object key is required")
	case ev.RevisionNumber < 0:
		return errors.NewValidation("revision number must not be negative")
	}
	return nil
}

// Handle processes one RevisionSubmitted event.
func (h *SubmissionHandler) Handle(ctx context.Context, ev events.RevisionSubmitted) (*SubmissionResult, error) {
	if err := validateSubmission(ev); err != nil {
		return nil, err
	}
	log := h.logger.With(
		logging.String(logging.FieldChainID, ev.ChainID),
		logging.String(logging.FieldDocumentID, ev.DocumentID),
	)

	key := "submission:" + ev.ChainID + ":" + ev.DocumentID
	claimed := false
	if h.claimer != nil {
		ok, err := h.claimer.Claim(ctx, key, h.claimTTL)
		switch {
		case err != nil:
			log.Warn("submission claim unavailable, processing anyway", logging.ErrorFields(err)...)
		case !ok:
			log.Info("duplicate submission skipped")
			return &SubmissionResult{}, nil
		default:
			claimed = true
		}
	}

	res, err := h.process(ctx, ev)
	if err != nil && claimed {
		// Release so a redelivery can retry.
		if delErr := h.claimer.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn("failed to release submission claim", logging.ErrorFields(delErr)...)
		}
	}
	return res, err
}

func (h *SubmissionHandler) process(ctx context.Context, ev events.RevisionSubmitted) (*SubmissionResult, error) {
	// Re-ingesting an attached document would replace its comments and
	// drop the links into its revision before AddRevision could refuse.
	rev, err := h.chains.RevisionForDocument(ctx, ev.DocumentID)
	switch {
	case err == nil:
		return nil, domainRevision.ErrInvalidParent.WithDetailf("document %s already attached to revision %s", ev.DocumentID, rev.ID)
	case !errors.IsNotFound(err):
		return nil, err
	}

	ing, err := h.ingest.IngestObject(ctx, ev.DocumentID, ev.ObjectKey)
	if err != nil {
		return nil, err
	}

	in := revision.AddRevisionInput{
		ChainID:        ev.ChainID,
		DocumentID:     ev.DocumentID,
		Label:          ev.Label,
		SubmittedDate:  ev.SubmittedAt,
		RevisionNumber: ev.RevisionNumber,
	}
	if ev.ParentRevisionID != "" {
		parent := ev.ParentRevisionID
		in.ParentRevisionID = &parent
	}
	added, err := h.chains.AddRevision(ctx, in)
	if err != nil {
		return nil, err
	}
	return &SubmissionResult{Ingestion: ing, Revision: added}, nil
}

//Personal.AI order the ending
