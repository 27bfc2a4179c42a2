// Package dashboard builds the month-over-month snapshot shown on the
// dashboard: pickups, recycled quantity, CO2 saved and volunteer hours,
// plus upcoming pickups and a per-material breakdown.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
)

// Section names, used in AggregationError to say what failed.
const (
	SectionPickups        = "pickups"
	SectionRecycledItems  = "recycledItems"
	SectionCO2Saved       = "co2Saved"
	SectionVolunteerHours = "volunteerHours"
	SectionUpcoming       = "upcomingPickups"
	SectionBreakdown      = "recyclingBreakdown"
)

// Source is the storage the aggregator reads; *data.MetricsStore implements it.
type Source interface {
	CountPickups(ctx context.Context, from, to time.Time) (int64, error)
	SumRecycling(ctx context.Context, field string, from, to time.Time) (float64, error)
	SumVolunteerHours(ctx context.Context, from, to time.Time) (float64, error)
	UpcomingPickups(ctx context.Context, from, to time.Time, limit int64) ([]data.UpcomingPickup, error)
	RecyclingBreakdown(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// Snapshot is the dashboard payload.
type Snapshot struct {
	TotalPickups                int64                 `json:"totalPickups"`
	PickupsChangePercent        float64               `json:"pickupsChangePercent"`
	TotalRecycledItems          float64               `json:"totalRecycledItems"`
	RecycledItemsChangePercent  float64               `json:"recycledItemsChangePercent"`
	TotalCO2SavedKg             float64               `json:"totalCO2SavedKg"`
	CO2SavedChangePercent       float64               `json:"co2SavedChangePercent"`
	TotalVolunteerHours         float64               `json:"totalVolunteerHours"`
	VolunteerHoursChangePercent float64               `json:"volunteerHoursChangePercent"`
	UpcomingPickups             []data.UpcomingPickup `json:"upcomingPickups"`
	RecyclingBreakdown          map[string]float64    `json:"recyclingBreakdown"`
}

// Options tunes the aggregator. Zero values fall back to defaults.
type Options struct {
	QueryTimeout   time.Duration  // per attempt, default 5s
	Retries        int            // extra attempts after the first failure
	Location       *time.Location // month boundaries, default time.Local
	UpcomingWindow time.Duration  // default 7 days
	UpcomingLimit  int            // default 10
}

func (o Options) withDefaults() Options {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 5 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.UpcomingWindow <= 0 {
		o.UpcomingWindow = 7 * 24 * time.Hour
	}
	if o.UpcomingLimit <= 0 {
		o.UpcomingLimit = 10
	}
	return o
}

// Aggregator computes snapshots.
type Aggregator struct {
	src  Source
	opts Options
	now  func() time.Time
}

// NewAggregator returns an Aggregator reading from src.
func NewAggregator(src Source, opts Options) *Aggregator {
	return &Aggregator{src: src, opts: opts.withDefaults(), now: time.Now}
}

// Period is a half-open time range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriods returns the calendar month containing now and the one before
// it, in now's location.
func MonthPeriods(now time.Time) (current, previous Period) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	current = Period{Start: start, End: start.AddDate(0, 1, 0)}
	previous = Period{Start: start.AddDate(0, -1, 0), End: start}
	return current, previous
}

// ChangePercent is (current-previous)/previous*100, except that a zero
// previous value always yields 100.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 100
	}
	return (current - previous) / previous * 100
}

// SectionError is one failed part of a snapshot.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string { return e.Section + ": " + e.Err.Error() }

func (e *SectionError) Unwrap() error { return e.Err }

// AggregationError reports every section that could not be computed. A
// snapshot is never returned with a failed section zeroed out.
type AggregationError struct {
	Failures []*SectionError
}

func (e *AggregationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("dashboard: %d section(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the section errors to errors.Is / errors.As.
func (e *AggregationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Sections lists the failed section names in order.
func (e *AggregationError) Sections() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Section
	}
	return names
}

// pair is the current and previous value of one metric.
type pair struct {
	current, previous float64
}

// Snapshot runs every section concurrently. Sections do not cancel each
// other; when any fail, the result is an *AggregationError naming all of them.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := a.now().In(a.opts.Location)
	cur, prev := MonthPeriods(now)
	upcomingEnd := now.Add(a.opts.UpcomingWindow)

	var (
		pickups, recycled, co2, hours pair
		upcoming                      []data.UpcomingPickup
		breakdown                     map[string]float64
	)

	sections := []struct {
		name string
		run  func() error
	}{
		{SectionPickups, func() error {
			return a.metricPair(ctx, &pickups, func(ctx context.Context, p Period) (float64, error) {
				n, err := a.src.CountPickups(ctx, p.Start, p.End)
				return float64(n), err
			}, cur, prev)
		}},
		{SectionRecycledItems, func() error {
			return a.metricPair(ctx, &recycled, func(ctx context.Context, p Period) (float64, error) {
				return a.src.SumRecycling(ctx, data.RecyclingQuantity, p.Start, p.End)
			}, cur, prev)
		}},
		{SectionCO2Saved, func() error {
			return a.metricPair(ctx, &co2, func(ctx context.Context, p Period) (float64, error) {
				return a.src.SumRecycling(ctx, data.RecyclingCO2, p.Start, p.End)
			}, cur, prev)
		}},
		{SectionVolunteerHours, func() error {
			return a.metricPair(ctx, &hours, func(ctx context.Context, p Period) (float64, error) {
				return a.src.SumVolunteerHours(ctx, p.Start, p.End)
			}, cur, prev)
		}},
		{SectionUpcoming, func() error {
			return a.retry(ctx, func(ctx context.Context) error {
				list, err := a.src.UpcomingPickups(ctx, now, upcomingEnd, int64(a.opts.UpcomingLimit))
				if err != nil {
					return err
				}
				upcoming = trimUpcoming(list, now, upcomingEnd, a.opts.UpcomingLimit)
				return nil
			})
		}},
		{SectionBreakdown, func() error {
			return a.retry(ctx, func(ctx context.Context) error {
				m, err := a.src.RecyclingBreakdown(ctx, cur.Start, cur.End)
				if err != nil {
					return err
				}
				breakdown = m
				return nil
			})
		}},
	}

	// Each goroutine writes only its own result variable and errs slot.
	errs := make([]error, len(sections))
	var g errgroup.Group
	for i, s := range sections {
		g.Go(func() error {
			errs[i] = s.run()
			return nil
		})
	}
	_ = g.Wait()

	var failures []*SectionError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &SectionError{Section: sections[i].name, Err: err})
		}
	}
	if len(failures) > 0 {
		return nil, &AggregationError{Failures: failures}
	}

	if breakdown == nil {
		breakdown = map[string]float64{}
	}
	if upcoming == nil {
		upcoming = []data.UpcomingPickup{}
	}

	return &Snapshot{
		TotalPickups:                int64(pickups.current),
		PickupsChangePercent:        ChangePercent(pickups.current, pickups.previous),
		TotalRecycledItems:          recycled.current,
		RecycledItemsChangePercent:  ChangePercent(recycled.current, recycled.previous),
		TotalCO2SavedKg:             co2.current,
		CO2SavedChangePercent:       ChangePercent(co2.current, co2.previous),
		TotalVolunteerHours:         hours.current,
		VolunteerHoursChangePercent: ChangePercent(hours.current, hours.previous),
		UpcomingPickups:             upcoming,
		RecyclingBreakdown:          breakdown,
	}, nil
}

// metricPair fills out with the metric for the current and previous period.
func (a *Aggregator) metricPair(ctx context.Context, out *pair, query func(context.Context, Period) (float64, error), cur, prev Period) error {
	for _, step := range []struct {
		label  string
		period Period
		dst    *float64
	}{
		{"current", cur, &out.current},
		{"previous", prev, &out.previous},
	} {
		err := a.retry(ctx, func(ctx context.Context) error {
			v, err := query(ctx, step.period)
			if err != nil {
				return err
			}
			*step.dst = v
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s period: %w", step.label, err)
		}
	}
	return nil
}

// retry runs fn up to 1+Retries times, each attempt bounded by QueryTimeout.
// It stops early once ctx is done.
func (a *Aggregator) retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= a.opts.Retries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				return ctxErr
			}
			return errors.Join(err, ctxErr)
		}

		qctx, cancel := context.WithTimeout(ctx, a.opts.QueryTimeout)
		err = fn(qctx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}

// trimUpcoming keeps pickups inside [from, to], sorted soonest first and
// capped at limit.
func trimUpcoming(list []data.UpcomingPickup, from, to time.Time, limit int) []data.UpcomingPickup {
	out := make([]data.UpcomingPickup, 0, len(list))
	for _, p := range list {
		if p.PickupDate.Before(from) || p.PickupDate.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PickupDate.Before(out[j].PickupDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
