// Package metric exposes evhub latencies as prometheus gauges.
package metric

import (
	"log/slog"
	"time"

	"evhub/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type gauges struct {
	reg                prometheus.Registerer
	storeRead          prometheus.Gauge
	storeWrite         prometheus.Gauge
	storeEmptyRead     prometheus.Gauge
	discordSendMessage prometheus.Gauge
}

func newGauges(reg prometheus.Registerer) *gauges {
	factory := promauto.With(reg)
	return &gauges{
		reg: reg,
		storeRead: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evhub_store_read_microsec",
			Help: "The latency of the last attendee store read in microseconds",
		}),
		storeWrite: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evhub_store_write_microsec",
			Help: "The latency of the last attendee store write in microseconds",
		}),
		storeEmptyRead: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evhub_store_empty_read_microsec",
			Help: "The latency of an empty database read in microseconds",
		}),
		discordSendMessage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evhub_discord_send_message_microsec",
			Help: "The latency of a discord message send in microseconds",
		}),
	}
}

func (g *gauges) unregister(name string, c prometheus.Collector) {
	switch g.reg.Unregister(c) {
	case true:
		slog.Debug(name + " metric unregistered")
	case false:
		slog.Warn(name + " metric not registered")
	}
}

// follow sets gauge to every sample from ch and back to 0 once no sample
// arrived for clearInterval.
func (g *gauges) follow(as *utils.AppState, name string, gauge prometheus.Gauge, ch <-chan float64, clearInterval time.Duration) {
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		clearTicker := time.NewTicker(clearInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-gracefulShutdownCh:
				g.unregister(name, gauge)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

// probe measures an empty database read every interval. The memory backend
// has nothing to probe.
func (g *gauges) probe(as *utils.AppState, interval time.Duration) {
	if as.BunDB == nil {
		slog.Debug("memory store backend, evhub_store_empty_read_microsec stays at 0")
		return
	}
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gracefulShutdownCh:
				g.unregister("evhub_store_empty_read_microsec", g.storeEmptyRead)
				return
			case <-ticker.C:
				latency, err := database(as.BunDB)
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				g.storeEmptyRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

func start(as *utils.AppState, g *gauges) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := tickerInterval * 2

	g.probe(as, tickerInterval)
	g.follow(as, "evhub_store_read_microsec", g.storeRead, as.MetricChans.StoreRead, clearTickerInterval)
	g.follow(as, "evhub_store_write_microsec", g.storeWrite, as.MetricChans.StoreWrite, clearTickerInterval)
	g.follow(as, "evhub_discord_send_message_microsec", g.discordSendMessage, as.MetricChans.DiscordSendMessage, clearTickerInterval)
}

// Init registers the gauges with the default registry and keeps them fed
// until the app shuts down.
func Init(as *utils.AppState) {
	start(as, newGauges(prometheus.DefaultRegisterer))
	slog.Debug("metrics registered")
}
