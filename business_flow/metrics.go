package businessflow

// Outcome labels reported to Metrics
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"

	ResolutionOK       = "ok"
	ResolutionNotFound = "not_found"
	ResolutionExpired  = "expired"
	ResolutionInactive = "inactive"
	ResolutionError    = "error"

	CreatedGenerated = "generated"
	CreatedAlias     = "alias"
	CreatedExisting  = "existing"
)

// Metrics receives domain events from the flows
type Metrics interface {
	CacheResult(op, result string)
	Resolution(outcome string)
	LinkCreated(kind string)
	ClickRecorded(ok bool)
	ExpiredSwept(n int)
}

type noopMetrics struct{}

func (noopMetrics) CacheResult(string, string) {}
func (noopMetrics) Resolution(string)          {}
func (noopMetrics) LinkCreated(string)         {}
func (noopMetrics) ClickRecorded(bool)         {}
func (noopMetrics) ExpiredSwept(int)           {}

// NoopMetrics discards every event
func NoopMetrics() Metrics { return noopMetrics{} }

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
