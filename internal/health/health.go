package health

import (
	"context"
	"fmt"
	"time"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/session"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Check is a single named probe.
type Check func(ctx context.Context) CheckResult

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, checks ...Check) HealthStatus {
	results := make([]CheckResult, 0, len(checks))
	allOK := true
	for _, check := range checks {
		r := check(ctx)
		if !r.OK {
			allOK = false
		}
		results = append(results, r)
	}
	return HealthStatus{
		OK:        allOK,
		Checks:    results,
		CheckedAt: time.Now().UTC(),
	}
}

// Catalog verifies that every subject has chapters and every chapter points
// back at its subject.
func Catalog(cat *catalog.Catalog) Check {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: "catalog"}
		subs := cat.Subjects()
		if len(subs) == 0 {
			result.Error = "catalog is empty"
			result.Latency = time.Since(start)
			return result
		}
		for _, sub := range subs {
			if len(sub.Chapters) == 0 {
				result.Error = fmt.Sprintf("subject %s has no chapters", sub.ID)
				result.Latency = time.Since(start)
				return result
			}
			for _, ch := range sub.Chapters {
				if ch.Subject() != sub {
					result.Error = fmt.Sprintf("chapter %s detached from %s", ch.ID, sub.ID)
					result.Latency = time.Since(start)
					return result
				}
			}
		}
		result.OK = true
		result.Latency = time.Since(start)
		return result
	}
}

// Snapshotter is implemented by session.Session.
type Snapshotter interface {
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// Session verifies that the session loop answers within timeout.
func Session(s Snapshotter, timeout time.Duration) Check {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: "session"}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if _, err := s.Snapshot(ctx); err != nil {
			result.Error = fmt.Sprintf("session loop: %v", err)
			result.Latency = time.Since(start)
			return result
		}
		result.OK = true
		result.Latency = time.Since(start)
		return result
	}
}
