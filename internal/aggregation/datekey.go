package aggregation

import (
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
)

const dateLayout = "2006-01-02"

// DatePolicy selects the date used for orders that carry none.
type DatePolicy string

const (
	// DatePolicyProcessing uses the clock at the time the event is handled.
	DatePolicyProcessing DatePolicy = "processing"
	// DatePolicyEvent uses the time the mutation happened, when the source
	// reports it.
	DatePolicyEvent DatePolicy = "event"
)

// ParseDatePolicy validates a policy name.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch p := DatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DatePolicyProcessing, DatePolicyEvent:
		return p, nil
	case "":
		return DatePolicyProcessing, nil
	default:
		return "", fmt.Errorf("unknown date policy %q", s)
	}
}

// DateKeys are the daily bucket keys of one event.
type DateKeys struct {
	Old string
	New string
}

// DateKeyer derives daily bucket keys in the business time zone.
type DateKeyer struct {
	policy DatePolicy
	loc    *time.Location
	now    func() time.Time
}

// NewDateKeyer returns a keyer; a nil location means UTC.
func NewDateKeyer(policy DatePolicy, loc *time.Location) *DateKeyer {
	if loc == nil {
		loc = time.UTC
	}
	if policy == "" {
		policy = DatePolicyProcessing
	}
	return &DateKeyer{policy: policy, loc: loc, now: time.Now}
}

// Fallback returns the key used for snapshots without a date. It is computed
// once per event so both sides of a mutation agree on it.
func (k *DateKeyer) Fallback(ev model.ChangeEvent) string {
	t := k.now()
	if k.policy == DatePolicyEvent && !ev.OccurredAt.IsZero() {
		t = ev.OccurredAt
	}
	return t.In(k.loc).Format(dateLayout)
}

// Normalize turns a snapshot date into a bucket key. Calendar dates are kept
// as is, timestamps are converted to the business time zone. An empty date
// yields an empty key.
func (k *DateKeyer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d.Format(dateLayout), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", fmt.Errorf("date %q: %w", raw, domainErrors.ErrInvalidEvent)
	}
	return ts.In(k.loc).Format(dateLayout), nil
}

// Keys resolves the old and new bucket keys of an event.
func (k *DateKeyer) Keys(ev model.ChangeEvent) (DateKeys, error) {
	var (
		keys DateKeys
		err  error
	)
	fallback := k.Fallback(ev)
	if ev.Before != nil {
		if keys.Old, err = k.Normalize(ev.Before.Date); err != nil {
			return DateKeys{}, err
		}
		if keys.Old == "" {
			keys.Old = fallback
		}
	}
	if ev.After != nil {
		if keys.New, err = k.Normalize(ev.After.Date); err != nil {
			return DateKeys{}, err
		}
		if keys.New == "" {
			keys.New = fallback
		}
	}
	return keys, nil
}
