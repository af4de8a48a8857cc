// Package report aggregates per-user counters for a migration or refresh
// run and renders the end-of-run summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Operation names the kind of run a report describes.
type Operation string

const (
	Migration Operation = "migration"
	Refresh   Operation = "refresh"
)

// DryRunPrefix marks every text line of a dry-run summary.
const DryRunPrefix = "[dry-run] "

// UserResult holds one user's counters.
type UserResult struct {
	UserID             string   `json:"userId"`
	Processed          int      `json:"processed"`
	PatternsCreated    int      `json:"patternsCreated"`
	InstancesGenerated int      `json:"instancesGenerated"`
	InstancesUpdated   int      `json:"instancesUpdated"`
	Errors             []string `json:"errors"`
}

// Totals sums every user's counters.
type Totals struct {
	Users              int `json:"users"`
	Processed          int `json:"processed"`
	PatternsCreated    int `json:"patternsCreated"`
	InstancesGenerated int `json:"instancesGenerated"`
	InstancesUpdated   int `json:"instancesUpdated"`
	Errors             int `json:"errors"`
}

// Summary is the serializable form of a report.
type Summary struct {
	Operation Operation    `json:"operation"`
	DryRun    bool         `json:"dryRun"`
	Users     []UserResult `json:"users"`
	Totals    Totals       `json:"totals"`
}

// Report accumulates results. It is safe for concurrent use.
type Report struct {
	op     Operation
	dryRun bool

	mu    sync.Mutex
	users map[string]*UserResult
}

// New returns an empty report.
func New(op Operation, dryRun bool) *Report {
	return &Report{op: op, dryRun: dryRun, users: make(map[string]*UserResult)}
}

// DryRun reports whether the run wrote nothing.
func (r *Report) DryRun() bool { return r.dryRun }

// Record applies fn to userID's counters, creating them on first use.
func (r *Report) Record(userID string, fn func(*UserResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = &UserResult{UserID: userID, Errors: []string{}}
		r.users[userID] = u
	}
	fn(u)
}

// AddError records a failure of one item (a legacy task or a pattern).
func (r *Report) AddError(userID, itemID string, err error) {
	r.Record(userID, func(u *UserResult) {
		u.Errors = append(u.Errors, fmt.Sprintf("%s: %v", itemID, err))
	})
}

// HasErrors reports whether any user recorded an error. It drives the
// process exit status, dry-run or not.
func (r *Report) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if len(u.Errors) > 0 {
			return true
		}
	}
	return false
}

// Summary returns a snapshot ordered by user id.
func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{Operation: r.op, DryRun: r.dryRun, Users: make([]UserResult, 0, len(r.users))}
	for _, u := range r.users {
		cp := *u
		cp.Errors = slices.Clone(u.Errors)
		s.Users = append(s.Users, cp)
	}
	slices.SortFunc(s.Users, func(a, b UserResult) int { return strings.Compare(a.UserID, b.UserID) })

	for _, u := range s.Users {
		s.Totals.Users++
		s.Totals.Processed += u.Processed
		s.Totals.PatternsCreated += u.PatternsCreated
		s.Totals.InstancesGenerated += u.InstancesGenerated
		s.Totals.InstancesUpdated += u.InstancesUpdated
		s.Totals.Errors += len(u.Errors)
	}
	return s
}

// WriteText renders the human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	s := r.Summary()
	prefix := ""
	if s.DryRun {
		prefix = DryRunPrefix
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		b.WriteString(prefix)
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s summary", s.Operation)
	if len(s.Users) == 0 {
		line("no users processed")
	}
	for _, u := range s.Users {
		id := u.UserID
		if id == "" {
			id = "(no user)"
		}
		line("user %s: processed=%d patternsCreated=%d instancesGenerated=%d instancesUpdated=%d errors=%d",
			id, u.Processed, u.PatternsCreated, u.InstancesGenerated, u.InstancesUpdated, len(u.Errors))
		for _, e := range u.Errors {
			line("  error %s", e)
		}
	}
	t := s.Totals
	line("total: users=%d processed=%d patternsCreated=%d instancesGenerated=%d instancesUpdated=%d errors=%d",
		t.Users, t.Processed, t.PatternsCreated, t.InstancesGenerated, t.InstancesUpdated, t.Errors)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the summary as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Summary())
}
