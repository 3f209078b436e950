package report

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Builder stamps query outcomes with sortable unique IDs
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new report builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Report is the outcome of one query against one network
type Report struct {
	ID           string
	Network      string
	Method       inference.Method
	Query        string
	Distribution inference.Distribution
	Elapsed      time.Duration
	Err          error
	CreatedAt    time.Time
}

// Line renders the report the way the command loop prints it: the
// formatted distribution, or the error.
func (r Report) Line() string {
	if r.Err != nil {
		return "error: " + r.Err.Error()
	}
	return r.Distribution.Format()
}

// AcceptanceRate is the share of samples that counted towards the
// estimate; 1 for exact inference.
func (r Report) AcceptanceRate() float64 {
	s := r.Distribution.Stats
	if s.Samples == 0 {
		return 1
	}
	return float64(s.Accepted) / float64(s.Samples)
}

// Build creates a report. The ID is monotonic within a builder, so reports
// built later sort after earlier ones. Build is safe for concurrent use.
func (b *Builder) Build(network string, method inference.Method, query string, dist inference.Distribution, elapsed time.Duration, err error) Report {
	b.mu.Lock()
	now := b.now()
	id := ulid.MustNew(ulid.Timestamp(now), b.entropy).String()
	b.mu.Unlock()

	return Report{
		ID:           id,
		Network:      network,
		Method:       method,
		Query:        query,
		Distribution: dist,
		Elapsed:      elapsed,
		Err:          err,
		CreatedAt:    now,
	}
}

// Run converts a report into its stored form.
func (r Report) Run() store.Run {
	run := store.Run{
		ID:        r.ID,
		Network:   r.Network,
		Method:    string(r.Method),
		Query:     r.Query,
		Values:    r.Distribution.Values,
		Probs:     r.Distribution.Probs,
		Samples:   r.Distribution.Stats.Samples,
		Accepted:  r.Distribution.Stats.Accepted,
		BurnIn:    r.Distribution.Stats.BurnIn,
		Elapsed:   r.Elapsed,
		CreatedAt: r.CreatedAt,
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}
