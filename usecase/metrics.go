package usecase

import "time"

// IPublishMetrics receives pipeline measurements; metrics.Metrics implements it.
type IPublishMetrics interface {
	ObservePlatformResult(platform, outcome string)
	ObserveJob(state string, d time.Duration)
	ObserveTokenRefresh(provider string, ok bool)
}

type noopMetrics struct{}

func (noopMetrics) ObservePlatformResult(string, string) {}
func (noopMetrics) ObserveJob(string, time.Duration)     {}
func (noopMetrics) ObserveTokenRefresh(string, bool)     {}

func metricsOrNoop(m IPublishMetrics) IPublishMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
