// Package work runs independent work items on a bounded pool and collects
// a per-item outcome, so that one failing item never aborts its siblings.
package work

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WorkTimeout is the default maximum duration of a single work item.
const WorkTimeout = 2 * time.Minute

// WorkItem represents a specific unit of work to be executed.
type WorkItem struct {
	// ID is the full work ID including subject (e.g., "history:sync:EUNL").
	ID string

	// TypeID is the work type ID (e.g., "history:sync").
	TypeID string

	// Subject is what the work is about (a ticker), empty for global work.
	Subject string

	// Execute performs the work. It must honour ctx cancellation where it can.
	Execute func(ctx context.Context) error
}

// NewWorkItem creates a work item for a type and subject.
func NewWorkItem(typeID, subject string, execute func(ctx context.Context) error) *WorkItem {
	id := typeID
	if subject != "" {
		id = typeID + ":" + subject
	}

	return &WorkItem{
		ID:      id,
		TypeID:  typeID,
		Subject: subject,
		Execute: execute,
	}
}

// Result is the outcome of one work item.
type Result struct {
	ID       string
	Subject  string
	Err      error
	Duration time.Duration
	TimedOut bool
}

// OK reports whether the item succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary collects the results of a run, in submission order.
type Summary struct {
	Results  []Result
	Duration time.Duration
}

// Succeeded returns the number of items that completed without error.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed results.
func (s *Summary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err joins the errors of all failed items, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", r.ID, r.Err))
	}
	return errors.Join(errs...)
}
