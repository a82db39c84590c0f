// Package disambig resolves free-text filter values against the values
// actually stored in the database, so that "acme corp" matches the stored
// "Acme Corp" and a value typed under the wrong dimension can be rerouted
// to the dimension that really holds it. Resolution never guesses: when
// two stored values score within the tie margin of each other, the caller
// gets a coded error listing both.
package disambig

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"semql/internal/intent"
	"semql/internal/logging"
	"semql/internal/observability"
	"semql/internal/semantic"
)

// CodeAmbiguousValue marks a filter value that matched no stored value
// decisively. The caller should ask the user to choose among Candidates.
const CodeAmbiguousValue = "AMBIGUOUS_VALUE"

const (
	defaultThreshold = 0.8
	defaultTieMargin = 0.05
	maxCandidates    = 5
)

// Lookup fetches the distinct stored values of a column. Implemented by
// dbexec.Lookup in production and by fakes in tests.
type Lookup interface {
	DistinctValues(ctx context.Context, table, column string) ([]string, error)
}

// Candidate is one stored value with its match score against the input.
type Candidate struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// AmbiguousValueError reports a filter value that could not be resolved to
// exactly one stored value.
type AmbiguousValueError struct {
	Dimension  string
	Input      string
	Candidates []Candidate
}

func (e *AmbiguousValueError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.Value
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s: no stored value of %q matches %q", CodeAmbiguousValue, e.Dimension, e.Input)
	}
	return fmt.Sprintf("%s: %q is ambiguous for %q (candidates: %s)",
		CodeAmbiguousValue, e.Input, e.Dimension, strings.Join(names, ", "))
}

// Disambiguator resolves validated filter values to canonical stored values.
type Disambiguator struct {
	lookup    Lookup
	scorers   []Scorer
	threshold float64
	tieMargin float64
	logger    *logging.Logger
	metrics   *observability.CompilerMetrics
}

// Option customizes a Disambiguator.
type Option func(*Disambiguator)

// WithThreshold sets the minimum score a fuzzy match must reach.
func WithThreshold(t float64) Option {
	return func(d *Disambiguator) { d.threshold = t }
}

// WithTieMargin sets the score gap below which two candidates are a tie.
func WithTieMargin(m float64) Option {
	return func(d *Disambiguator) { d.tieMargin = m }
}

// WithScorers replaces the default scoring strategies.
func WithScorers(scorers ...Scorer) Option {
	return func(d *Disambiguator) { d.scorers = scorers }
}

// WithLogger sets the logger used to record directed rewrites.
func WithLogger(l *logging.Logger) Option {
	return func(d *Disambiguator) { d.logger = l }
}

// WithMetrics attaches compiler metrics; each distinct-value fetch that
// reaches the database is counted.
func WithMetrics(m *observability.CompilerMetrics) Option {
	return func(d *Disambiguator) { d.metrics = m }
}

// New creates a Disambiguator over the given lookup.
func New(lookup Lookup, opts ...Option) *Disambiguator {
	d := &Disambiguator{
		lookup:    lookup,
		scorers:   []Scorer{EditDistanceScorer{}, TokenOverlapScorer{}},
		threshold: defaultThreshold,
		tieMargin: defaultTieMargin,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disambiguate resolves every filter value in v to a canonical stored
// value and returns a fresh validated intent. The input is never mutated.
//
// Resolution order per value: exact case-normalized match against the home
// dimension, then an exact match against every other dimension (a directed
// rewrite, taken only when exactly one other dimension holds the value),
// then fuzzy scoring against the home dimension.
func (d *Disambiguator) Disambiguate(ctx context.Context, v *intent.Validated, model *semantic.Model) (*intent.Validated, error) {
	out := &intent.Validated{
		Metric:  v.Metric,
		GroupBy: append(intent.GroupBy(nil), v.GroupBy...),
		Dates:   v.Dates,
		Filters: v.CloneFilters(),
	}

	cache := make(map[string][]string)

	for _, dim := range sortedFilterKeys(out.Filters) {
		values, ok := out.Filters[dim]
		if !ok {
			continue
		}
		for i, raw := range values {
			resolved, rewriteTo, err := d.resolveValue(ctx, dim, raw, model, cache, len(values) == 1)
			if err != nil {
				return nil, err
			}
			if rewriteTo != "" {
				d.log(ctx, dim, rewriteTo, raw, resolved)
				delete(out.Filters, dim)
				out.Filters[rewriteTo] = append(out.Filters[rewriteTo], resolved)
				break
			}
			values[i] = resolved
		}
	}
	return out, nil
}

// resolveValue returns the canonical value and, when the value was found
// on a different dimension, the name of that dimension. Rewrites are only
// attempted for single-valued filters.
func (d *Disambiguator) resolveValue(ctx context.Context, dim, raw string, model *semantic.Model, cache map[string][]string, allowRewrite bool) (string, string, error) {
	stored, err := d.storedValues(ctx, dim, model, cache)
	if err != nil {
		return "", "", err
	}

	if canonical, ok := exactMatch(stored, raw); ok {
		return canonical, "", nil
	}

	if allowRewrite {
		target, canonical, err := d.crossDimensionMatch(ctx, dim, raw, model, cache)
		if err != nil {
			return "", "", err
		}
		if target != "" {
			return canonical, target, nil
		}
	}

	canonical, err := d.fuzzyMatch(dim, raw, stored)
	if err != nil {
		return "", "", err
	}
	return canonical, "", nil
}

func (d *Disambiguator) storedValues(ctx context.Context, dim string, model *semantic.Model, cache map[string][]string) ([]string, error) {
	spec := model.Dimensions[dim]
	table := spec.Table
	if table == "" {
		table = model.FactTable
	}
	key := table + "." + spec.Column
	if values, ok := cache[key]; ok {
		return values, nil
	}
	values, err := d.lookup.DistinctValues(ctx, table, spec.Column)
	if err != nil {
		return nil, fmt.Errorf("lookup values for dimension %q: %w", dim, err)
	}
	d.recordLookup(ctx, dim)
	cache[key] = values
	return values, nil
}

// recordLookup counts one database fetch of distinct values. Cache hits are
// not counted. Metrics come from the option or, failing that, the context.
func (d *Disambiguator) recordLookup(ctx context.Context, dim string) {
	metrics := d.metrics
	if metrics == nil {
		metrics = observability.CompilerMetricsFromContext(ctx)
	}
	if metrics != nil {
		metrics.RecordLookup(ctx, dim)
	}
}

// crossDimensionMatch looks for an exact match of raw on every dimension
// other than home. The rewrite fires only when exactly one other dimension
// holds the value; zero or several matches leave the filter where it is.
func (d *Disambiguator) crossDimensionMatch(ctx context.Context, home, raw string, model *semantic.Model, cache map[string][]string) (string, string, error) {
	var (
		target    string
		canonical string
		matches   int
	)
	for _, name := range model.DimensionNames() {
		if name == home {
			continue
		}
		stored, err := d.storedValues(ctx, name, model, cache)
		if err != nil {
			return "", "", err
		}
		if c, ok := exactMatch(stored, raw); ok {
			matches++
			target = name
			canonical = c
		}
	}
	if matches != 1 {
		return "", "", nil
	}
	return target, canonical, nil
}

func (d *Disambiguator) fuzzyMatch(dim, raw string, stored []string) (string, error) {
	scored := make([]Candidate, 0, len(stored))
	for _, value := range stored {
		best := 0.0
		for _, scorer := range d.scorers {
			if s := scorer.Score(value, raw); s > best {
				best = s
			}
		}
		scored = append(scored, Candidate{Value: value, Score: best})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) == 0 || scored[0].Score < d.threshold {
		return "", &AmbiguousValueError{Dimension: dim, Input: raw, Candidates: topCandidates(scored)}
	}
	if len(scored) > 1 && scored[0].Score-scored[1].Score < d.tieMargin {
		tied := []Candidate{scored[0]}
		for _, c := range scored[1:] {
			if scored[0].Score-c.Score >= d.tieMargin {
				break
			}
			tied = append(tied, c)
		}
		return "", &AmbiguousValueError{Dimension: dim, Input: raw, Candidates: tied}
	}
	return scored[0].Value, nil
}

func (d *Disambiguator) log(ctx context.Context, from, to, raw, canonical string) {
	logger := d.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger.InfoContext(ctx, "rewrote filter to matching dimension",
		"from_dimension", from,
		"to_dimension", to,
		"input", raw,
		"resolved", canonical,
	)
}

func exactMatch(stored []string, raw string) (string, bool) {
	want := normalize(raw)
	for _, value := range stored {
		if normalize(value) == want {
			return value, true
		}
	}
	return "", false
}

func topCandidates(scored []Candidate) []Candidate {
	out := make([]Candidate, 0, maxCandidates)
	for _, c := range scored {
		if c.Score <= 0 || len(out) == maxCandidates {
			break
		}
		out = append(out, c)
	}
	return out
}

func sortedFilterKeys(filters map[string]intent.FilterValue) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
