// Package metrics implements the Metrics Store: an append-only JSONL log of
// actions and stumbles, with in-memory counters for immediate reads and
// windowed queries that scan the durable JSONL file.
package metrics

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
)

// RecordType distinguishes the two JSONL record shapes.
type RecordType string

const (
	RecordAction  RecordType = "action"
	RecordStumble RecordType = "stumble"
)

// Record is one line of the metrics JSONL file (spec.md §6).
type Record struct {
	Type      RecordType `json:"type"`
	AgentName string     `json:"agent_name"`
	Kind      string     `json:"kind,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

type agentKindKey struct {
	agent string
	kind  string
}

// Store is the Metrics Store.
type Store struct {
	mu sync.Mutex

	path string
	file *os.File

	totalActions  map[string]int64
	totalStumbles map[string]int64
	stumbleByKind map[agentKindKey]int64

	actionsCounter  *prometheus.CounterVec
	stumblesCounter *prometheus.CounterVec
	stumbleRateG    *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New opens (creating if needed) the metrics JSONL file at path and
// registers its Prometheus collectors with reg (pass prometheus.NewRegistry()
// or nil to skip Prometheus export entirely).
func New(path string, reg prometheus.Registerer) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:          path,
		file:          f,
		totalActions:  make(map[string]int64),
		totalStumbles: make(map[string]int64),
		stumbleByKind: make(map[agentKindKey]int64),
	}

	if reg != nil {
		s.actionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sprout_actions_total",
			Help: "Total actions (primitives + delegations) completed per agent.",
		}, []string{"agent"})
		s.stumblesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sprout_stumbles_total",
			Help: "Total stumbles per agent and kind.",
		}, []string{"agent", "kind"})
		s.stumbleRateG = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sprout_stumble_rate",
			Help: "Live stumble rate (stumbles/actions) per agent.",
		}, []string{"agent"})
		reg.MustRegister(s.actionsCounter, s.stumblesCounter, s.stumbleRateG)
		if r, ok := reg.(*prometheus.Registry); ok {
			s.registry = r
		}
	}

	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) loadFromDisk() error {
	if _, err := s.file.Seek(0, 0); err != nil {
		return err
	}
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		s.applyInMemory(rec)
	}
	if _, err := s.file.Seek(0, 2); err != nil {
		return err
	}
	return scanner.Err()
}

func (s *Store) applyInMemory(rec Record) {
	switch rec.Type {
	case RecordAction:
		s.totalActions[rec.AgentName]++
	case RecordStumble:
		s.totalStumbles[rec.AgentName]++
		s.stumbleByKind[agentKindKey{rec.AgentName, rec.Kind}]++
	}
}

func (s *Store) appendRecord(rec Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		logger.Get().Debug("metrics: marshal failed", "err", err)
		return
	}
	line = append(line, '\n')
	if _, err := s.file.Write(line); err != nil {
		logger.Get().Debug("metrics: append failed", "err", err)
	}
}

// RecordAction increments the action counter for agent. The in-memory
// counter is updated before the (fire-and-forget) disk append returns, so
// an immediate read observes the increment.
func (s *Store) RecordAction(agent string) {
	s.mu.Lock()
	s.totalActions[agent]++
	s.mu.Unlock()

	if s.actionsCounter != nil {
		s.actionsCounter.WithLabelValues(agent).Inc()
	}
	s.refreshRateGauge(agent)

	go s.appendRecord(Record{Type: RecordAction, AgentName: agent, Timestamp: time.Now().UnixMilli()})
}

// RecordStumble increments the stumble counters for (agent, kind).
func (s *Store) RecordStumble(agent, kind string) {
	s.mu.Lock()
	s.totalStumbles[agent]++
	s.stumbleByKind[agentKindKey{agent, kind}]++
	s.mu.Unlock()

	if s.stumblesCounter != nil {
		s.stumblesCounter.WithLabelValues(agent, kind).Inc()
	}
	s.refreshRateGauge(agent)

	go s.appendRecord(Record{Type: RecordStumble, AgentName: agent, Kind: kind, Timestamp: time.Now().UnixMilli()})
}

func (s *Store) refreshRateGauge(agent string) {
	if s.stumbleRateG == nil {
		return
	}
	s.stumbleRateG.WithLabelValues(agent).Set(s.StumbleRate(agent))
}

// StumbleCount returns the number of recorded stumbles for (agent, kind).
func (s *Store) StumbleCount(agent, kind string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stumbleByKind[agentKindKey{agent, kind}]
}

// TotalActions returns the number of recorded actions for agent.
func (s *Store) TotalActions(agent string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalActions[agent]
}

// TotalStumbles returns the number of recorded stumbles for agent.
func (s *Store) TotalStumbles(agent string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalStumbles[agent]
}

// StumbleRate returns stumbles/actions for agent, or 0 if no actions have
// been recorded.
func (s *Store) StumbleRate(agent string) float64 {
	s.mu.Lock()
	actions := s.totalActions[agent]
	stumbles := s.totalStumbles[agent]
	s.mu.Unlock()
	if actions == 0 {
		return 0
	}
	return float64(stumbles) / float64(actions)
}

// ActionCountSince scans the durable JSONL file and counts actions recorded
// for agent at or after sinceMillis (inclusive).
func (s *Store) ActionCountSince(agent string, sinceMillis int64) (int64, error) {
	count, _, err := s.scanWindow(agent, RecordAction, "", sinceMillis, time.Now().UnixMilli())
	return count, err
}

// StumbleRateForPeriod computes the stumble rate for agent over
// [sinceMillis, untilMillis], both inclusive, by scanning the durable JSONL
// file.
func (s *Store) StumbleRateForPeriod(agent string, sinceMillis, untilMillis int64) (float64, error) {
	actions, _, err := s.scanWindow(agent, RecordAction, "", sinceMillis, untilMillis)
	if err != nil {
		return 0, err
	}
	stumbles, _, err := s.scanWindow(agent, RecordStumble, "", sinceMillis, untilMillis)
	if err != nil {
		return 0, err
	}
	if actions == 0 {
		return 0, nil
	}
	return float64(stumbles) / float64(actions), nil
}

// scanWindow counts records of recordType for agent (and kind, if non-empty)
// with timestamp in [since, until] inclusive. The second return value is the
// total number of matching-agent records seen regardless of type, reserved
// for future windowed queries.
func (s *Store) scanWindow(agent string, recordType RecordType, kind string, since, until int64) (int64, int64, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var count, total int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.AgentName != agent {
			continue
		}
		if rec.Timestamp < since || rec.Timestamp > until {
			continue
		}
		total++
		if rec.Type == recordType && (kind == "" || rec.Kind == kind) {
			count++
		}
	}
	return count, total, scanner.Err()
}

// Close closes the underlying JSONL file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Handler serves the Prometheus registry reg was constructed with, if any.
// Returns a 404 handler when Prometheus export was never enabled.
func (s *Store) Handler() http.Handler {
	if s.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
