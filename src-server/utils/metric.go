package utils

// MetricChans carry latency samples, in microseconds, from the code that
// measures them to the prometheus gauges in the metric package. Senders
// must not block: drop the sample when nobody is listening.
type MetricChans struct {
	StoreRead          chan float64
	StoreWrite         chan float64
	DiscordSendMessage chan float64
}

func NewMetricChans() *MetricChans {
	return &MetricChans{
		StoreRead:          make(chan float64, 16),
		StoreWrite:         make(chan float64, 16),
		DiscordSendMessage: make(chan float64, 16),
	}
}
