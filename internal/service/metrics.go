package service

import "github.com/prometheus/client_golang/prometheus"

// Index operation labels for index_operations_errors_total.
const (
	opFind   = "find"
	opWrite  = "write"
	opSearch = "search"
	opList   = "list"
	opDelete = "delete"
)

// Metrics holds the ingestion and index counters.
type Metrics struct {
	documentsIngested  *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	indexErrors        *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		documentsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_ingested_total",
				Help: "Uploaded files processed, by final status.",
			},
			[]string{"status"},
		),
		extractionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extraction_failures_total",
				Help: "Files whose text could not be extracted, by declared content type.",
			},
			[]string{"content_type"},
		),
		indexErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_operations_errors_total",
				Help: "Failed calls to the search index, by operation.",
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{m.documentsIngested, m.extractionFailures, m.indexErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ingested(status string) {
	if m != nil {
		m.documentsIngested.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) extractionFailed(contentType string) {
	if m != nil {
		m.extractionFailures.WithLabelValues(contentType).Inc()
	}
}

func (m *Metrics) indexFailed(op string) {
	if m != nil {
		m.indexErrors.WithLabelValues(op).Inc()
	}
}
