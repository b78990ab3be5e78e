package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	channelUpDesc = prometheus.NewDesc(
		"oml_channel_up",
		"Whether the channel sender is running (1) or has failed (0).",
		[]string{"name", "domain", "url"}, nil,
	)
	channelDroppedDesc = prometheus.NewDesc(
		"oml_channel_dropped_lines_total",
		"Lines discarded because the channel sender had failed.",
		[]string{"name", "domain", "url"}, nil,
	)
	collectionActiveDesc = prometheus.NewDesc(
		"oml_collection_active",
		"Whether measurement collection is started (1) or not (0).",
		nil, nil,
	)
)

// channelCollector reads channel state at scrape time.
type channelCollector struct {
	channels ChannelSource
	state    StateSource
}

func (c channelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- channelUpDesc
	ch <- channelDroppedDesc
	ch <- collectionActiveDesc
}

func (c channelCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(collectionActiveDesc, prometheus.GaugeValue, boolValue(c.state.Active()))

	for _, channel := range c.channels.Channels() {
		labels := []string{channel.Name(), channel.Domain(), channel.URL()}
		ch <- prometheus.MustNewConstMetric(channelUpDesc, prometheus.GaugeValue,
			boolValue(channel.Err() == nil), labels...)
		ch <- prometheus.MustNewConstMetric(channelDroppedDesc, prometheus.CounterValue,
			float64(channel.Dropped()), labels...)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// newMetricsRegistry registers the channel collector and Go runtime metrics.
func newMetricsRegistry(channels ChannelSource, state StateSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		channelCollector{channels: channels, state: state},
		collectors.NewGoCollector(),
	)
	return reg
}
