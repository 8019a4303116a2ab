package prometheus

import (
	"time"
)

// AppMetrics holds the engine's metric vectors.
type AppMetrics struct {
	// Extraction
	ExtractionsTotal       CounterVec
	ExtractionDuration     HistogramVec
	ExtractedComments      HistogramVec
	ExtractionPagesFailed  CounterVec
	ExtractionCacheResults CounterVec

	// Revision chains
	RevisionsAddedTotal  CounterVec
	RevisionAddDuration  HistogramVec
	CommentLinksTotal    CounterVec
	AssessmentsTotal     CounterVec
	ChainRiskScore       HistogramVec
	ChainLockWaitSeconds HistogramVec

	// Messaging
	MessagesHandledTotal   CounterVec
	MessageHandlerDuration HistogramVec

	// Infrastructure
	DBPoolOpen        GaugeVec
	DBPoolInUse       GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultExtractionDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultCommentCountBuckets       = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500}
	DefaultRiskScoreBuckets          = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	DefaultHandlerDurationBuckets    = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
)

// NewAppMetrics registers every engine metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.ExtractionsTotal = collector.RegisterCounter("extractions_total", "Document extractions", "status")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Document extraction duration", DefaultExtractionDurationBuckets)
	m.ExtractedComments = collector.RegisterHistogram("extracted_comments", "Comments extracted per document", DefaultCommentCountBuckets)
	m.ExtractionPagesFailed = collector.RegisterCounter("extraction_pages_failed_total", "Pages skipped during extraction")
	m.ExtractionCacheResults = collector.RegisterCounter("extraction_cache_total", "Extraction cache lookups", "result")

	m.RevisionsAddedTotal = collector.RegisterCounter("revisions_added_total", "Revisions attached to chains")
	m.RevisionAddDuration = collector.RegisterHistogram("revision_add_duration_seconds", "Time to attach and link a revision", DefaultHandlerDurationBuckets)
	m.CommentLinksTotal = collector.RegisterCounter("comment_links_total", "Cross-revision comment links created")
	m.AssessmentsTotal = collector.RegisterCounter("chain_assessments_total", "Chain risk assessments", "risk_level")
	m.ChainRiskScore = collector.RegisterHistogram("chain_risk_score", "Assessed chain risk score", DefaultRiskScoreBuckets)
	m.ChainLockWaitSeconds = collector.RegisterHistogram("chain_lock_wait_seconds", "Time spent waiting for a chain lock", DefaultHandlerDurationBuckets)

	m.MessagesHandledTotal = collector.RegisterCounter("messages_handled_total", "Consumed messages by outcome", "topic", "status")
	m.MessageHandlerDuration = collector.RegisterHistogram("message_handler_duration_seconds", "Message handler duration", DefaultHandlerDurationBuckets, "topic")

	m.DBPoolOpen = collector.RegisterGauge("db_pool_open", "Open database connections")
	m.DBPoolInUse = collector.RegisterGauge("db_pool_in_use", "Database connections in use")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// ObserveRevisionAdded records one attached revision and its links.
func (m *AppMetrics) ObserveRevisionAdded(links int, duration time.Duration) {
	m.RevisionsAddedTotal.WithLabelValues().Inc()
	m.CommentLinksTotal.WithLabelValues().Add(float64(links))
	m.RevisionAddDuration.WithLabelValues().Observe(duration.Seconds())
}

// ObserveAssessment records one chain assessment.
func (m *AppMetrics) ObserveAssessment(level string, score float64) {
	m.AssessmentsTotal.WithLabelValues(level).Inc()
	m.ChainRiskScore.WithLabelValues().Observe(score)
}

// ObserveLockWait records time spent acquiring a chain lock.
func (m *AppMetrics) ObserveLockWait(wait time.Duration) {
	m.ChainLockWaitSeconds.WithLabelValues().Observe(wait.Seconds())
}

// ObserveExtraction records one finished or failed extraction.
func (m *AppMetrics) ObserveExtraction(comments, pagesFailed int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ExtractionsTotal.WithLabelValues(status).Inc()
	m.ExtractionDuration.WithLabelValues().Observe(duration.Seconds())
	if err == nil {
		m.ExtractedComments.WithLabelValues().Observe(float64(comments))
		m.ExtractionPagesFailed.WithLabelValues().Add(float64(pagesFailed))
	}
}

// ObserveExtractionCache records a cache hit or miss.
func (m *AppMetrics) ObserveExtractionCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ExtractionCacheResults.WithLabelValues(result).Inc()
}

// ObserveMessage records one consumed message.
func (m *AppMetrics) ObserveMessage(topic string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.MessagesHandledTotal.WithLabelValues(topic, status).Inc()
	m.MessageHandlerDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// SetDBPool publishes connection pool occupancy.
func (m *AppMetrics) SetDBPool(open, inUse int) {
	m.DBPoolOpen.WithLabelValues().Set(float64(open))
	m.DBPoolInUse.WithLabelValues().Set(float64(inUse))
}

// SetHealth marks component up or down.
func (m *AppMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// RecordError counts an error by component and code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
