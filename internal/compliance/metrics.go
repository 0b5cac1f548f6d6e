package compliance

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Metrics accumulates enforcement totals.
type Metrics struct {
	mu         sync.Mutex
	operations int
	compliant  int
	blocked    int
	bySeverity map[Severity]int
	byRule     map[string]int
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	OperationsMonitored  int              `json:"operations_monitored"`
	CompliantOperations  int              `json:"compliant_operations"`
	BlockedOperations    int              `json:"blocked_operations"`
	ViolationsDetected   int              `json:"violations_detected"`
	ViolationsBySeverity map[Severity]int `json:"violations_by_severity"`
	ViolationsByRule     map[string]int   `json:"violations_by_rule"`
	ComplianceRate       decimal.Decimal  `json:"compliance_rate"`
}

// NewMetrics returns empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		bySeverity: make(map[Severity]int),
		byRule:     make(map[string]int),
	}
}

func (m *Metrics) violation(v Violation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySeverity[v.Severity]++
	m.byRule[v.RuleID]++
}

func (m *Metrics) operation(r *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations++
	if r.Blocked {
		m.blocked++
	}
	if len(r.Violations()) == 0 {
		m.compliant++
	}
}

// Snapshot copies the current totals. ComplianceRate is the share of
// monitored operations without violations, 1 when none have run.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		OperationsMonitored:  m.operations,
		CompliantOperations:  m.compliant,
		BlockedOperations:    m.blocked,
		ViolationsBySeverity: make(map[Severity]int, len(m.bySeverity)),
		ViolationsByRule:     make(map[string]int, len(m.byRule)),
		ComplianceRate:       decimal.NewFromInt(1),
	}
	for k, v := range m.bySeverity {
		s.ViolationsBySeverity[k] = v
		s.ViolationsDetected += v
	}
	for k, v := range m.byRule {
		s.ViolationsByRule[k] = v
	}
	if m.operations > 0 {
		s.ComplianceRate = decimal.NewFromInt(int64(m.compliant)).
			DivRound(decimal.NewFromInt(int64(m.operations)), 4)
	}
	return s
}
