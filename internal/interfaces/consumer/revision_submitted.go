// internal/interfaces/consumer/revision_submitted.go
//
// Kafka entry point of the ingestion worker.  Decodes docrev.revision.submitted
// envelopes and hands them to the submission handler.  Failures that a retry
// cannot fix are re-coded as invalid messages so the consumer dead-letters
// them at once.
//
// Dependencies:
//   Depends on: application/ingestion, application/events,
//               infrastructure/messaging/kafka, infrastructure/monitoring/logging
//   Depended by: cmd/worker

package consumer

import (
	"context"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/application/ingestion"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// SubmissionProcessor handles one decoded submission.
type SubmissionProcessor interface {
	Handle(ctx context.Context, ev events.RevisionSubmitted) (*ingestion.SubmissionResult, error)
}

// MessageMetrics receives per-message outcomes.
type MessageMetrics interface {
	ObserveMessage(topic string, duration time.Duration, err error)
	RecordError(component, code string)
}

// permanentCodes are failures that redelivery cannot fix.
var permanentCodes = []errors.ErrorCode{
	errors.ErrCodeValidation,
	errors.ErrCodeDocumentUnreadable,
	errors.ErrCodeDocumentEmpty,
	errors.ErrCodeObjectNotFound,
	errors.ErrCodeDuplicateRevision,
	errors.ErrCodeInvalidParent,
	errors.ErrCodeInvalidRevisionNumber,
	errors.ErrCodeChainNotFound,
	errors.ErrCodeChainArchived,
}

func isPermanent(err error) bool {
	for _, code := range permanentCodes {
		if errors.IsCode(err, code) {
			return true
		}
	}
	return false
}

// RevisionSubmittedHandler returns the kafka.Handler for submissions.
// metrics may be nil.
func RevisionSubmittedHandler(p SubmissionProcessor, metrics MessageMetrics, logger logging.Logger) kafka.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("consumer")

	return func(ctx context.Context, msg *kafka.Message) error {
		start := time.Now()
		err := handleSubmission(ctx, p, msg, logger)
		if metrics != nil {
			metrics.ObserveMessage(events.TopicRevisionSubmitted, time.Since(start), err)
			if err != nil {
				metrics.RecordError("consumer", string(errors.GetCode(err)))
			}
		}
		return err
	}
}

func handleSubmission(ctx context.Context, p SubmissionProcessor, msg *kafka.Message, logger logging.Logger) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != events.TopicRevisionSubmitted {
		return errors.New(errors.ErrCodeMessageInvalid, "unexpected event type").WithDetail(env.EventType)
	}
	var ev events.RevisionSubmitted
	if err := env.DecodePayload(&ev); err != nil {
		return err
	}

	log := logger.With(
		logging.String("event_id", env.EventID),
		logging.String(logging.FieldChainID, ev.ChainID),
		logging.String(logging.FieldDocumentID, ev.DocumentID),
	)

	res, err := p.Handle(ctx, ev)
	if err != nil {
		if isPermanent(err) {
			log.Warn("submission rejected", logging.ErrorFields(err)...)
			return errors.Wrap(err, errors.ErrCodeMessageInvalid, "submission cannot be processed").
				WithDetail(env.EventID)
		}
		return err
	}
	if res.Revision == nil {
		return nil
	}
	log.Info("submission processed",
		logging.String(logging.FieldRevisionID, res.Revision.Revision.ID),
		logging.Int("revision_number", res.Revision.Revision.RevisionNumber),
		logging.Int("links", len(res.Revision.Links)),
	)
	return nil
}

//Personal.AI order the ending
