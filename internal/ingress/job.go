// Package ingress implements the incoming-activity queue of spec.md §4.5:
// batch popping within a per-job deadline, handler dispatch, retry/backoff
// on network-retriable errors, and authentication gating. There is no
// teacher equivalent for an activity queue; the worker loop style (context
// deadline per unit of work, goroutine-per-job fan-out bounded by a
// WaitGroup) follows the same idiom as internal/egress and the teacher's
// HealthChecker.tick (core/fault_tolerance.go).
package ingress

import (
	"encoding/json"
)

// IncomingActivityJob is one queued inbox delivery (§4.5).
type IncomingActivityJob struct {
	Activity         json.RawMessage
	IsAuthenticated  bool
	FailureCount     int
}
