package obs

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"msgbus/internal/bus"
)

const namespace = "msgbus"

var (
	publishedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "published_total"),
		"Total number of messages published, by topic.",
		[]string{"topic"}, nil,
	)
	deliveredDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "delivered_total"),
		"Total number of deliveries to receivers, by topic.",
		[]string{"topic"}, nil,
	)
	unroutedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "unrouted_total"),
		"Total number of messages published without any receiver, by topic.",
		[]string{"topic"}, nil,
	)
	laggedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "lagged_total"),
		"Total number of messages skipped by lagging receivers, by topic.",
		[]string{"topic"}, nil,
	)
	channelsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "channels"),
		"Number of channels created.",
		nil, nil,
	)
)

// Metrics collects lightweight per-topic bus counters.
//
// It implements bus.Observer and prometheus.Collector.
type Metrics struct {
	mu       sync.RWMutex
	topics   map[string]*topicStats
	channels uint64
}

type topicStats struct {
	published uint64
	delivered uint64
	unrouted  uint64
	lagged    uint64
}

// TopicSnapshot is a point-in-time view of one topic's counters.
type TopicSnapshot struct {
	Topic     string
	Published uint64
	Delivered uint64
	Unrouted  uint64
	Lagged    uint64
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Channels uint64
	Topics   []TopicSnapshot
}

var (
	_ bus.Observer         = (*Metrics)(nil)
	_ prometheus.Collector = (*Metrics)(nil)
)

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{topics: make(map[string]*topicStats)}
}

// ChannelCreated records a new bus channel.
func (m *Metrics) ChannelCreated(topic string) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.channels, 1)
	m.stats(topic)
}

// Published records one publish and its delivery count.
func (m *Metrics) Published(topic string, delivered int) {
	if m == nil {
		return
	}
	s := m.stats(topic)
	atomic.AddUint64(&s.published, 1)
	if delivered == 0 {
		atomic.AddUint64(&s.unrouted, 1)
		return
	}
	atomic.AddUint64(&s.delivered, uint64(delivered))
}

// Lagged records messages skipped by a lagging receiver.
func (m *Metrics) Lagged(topic string, skipped uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.stats(topic).lagged, skipped)
}

// Snapshot returns a copy of the current metrics values sorted by topic.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	topics := make([]TopicSnapshot, 0, len(m.topics))
	for topic, s := range m.topics {
		topics = append(topics, TopicSnapshot{
			Topic:     topic,
			Published: atomic.LoadUint64(&s.published),
			Delivered: atomic.LoadUint64(&s.delivered),
			Unrouted:  atomic.LoadUint64(&s.unrouted),
			Lagged:    atomic.LoadUint64(&s.lagged),
		})
	}
	m.mu.RUnlock()

	sort.Slice(topics, func(i, j int) bool {
		return topics[i].Topic < topics[j].Topic
	})
	return Snapshot{
		Channels: atomic.LoadUint64(&m.channels),
		Topics:   topics,
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- publishedDesc
	ch <- deliveredDesc
	ch <- unroutedDesc
	ch <- laggedDesc
	ch <- channelsDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	snapshot := m.Snapshot()
	ch <- prometheus.MustNewConstMetric(channelsDesc, prometheus.GaugeValue, float64(snapshot.Channels))
	for _, t := range snapshot.Topics {
		ch <- prometheus.MustNewConstMetric(publishedDesc, prometheus.CounterValue, float64(t.Published), t.Topic)
		ch <- prometheus.MustNewConstMetric(deliveredDesc, prometheus.CounterValue, float64(t.Delivered), t.Topic)
		ch <- prometheus.MustNewConstMetric(unroutedDesc, prometheus.CounterValue, float64(t.Unrouted), t.Topic)
		ch <- prometheus.MustNewConstMetric(laggedDesc, prometheus.CounterValue, float64(t.Lagged), t.Topic)
	}
}

func (m *Metrics) stats(topic string) *topicStats {
	m.mu.RLock()
	s, ok := m.topics[topic]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.topics[topic]; ok {
		return s
	}
	s = &topicStats{}
	m.topics[topic] = s
	return s
}
