package core

// Metrics receives domain measurements. services/metrics implements it with prometheus.
type Metrics interface {
	ObserveExpansion(occurrences int, truncated bool)
	ObserveDigestTransition(from, to string, allowed bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveExpansion(int, bool)                     {}
func (nopMetrics) ObserveDigestTransition(string, string, bool) {}

// NopMetrics discards everything.
var NopMetrics Metrics = nopMetrics{}
