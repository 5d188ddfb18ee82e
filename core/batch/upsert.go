// Package batch applies many keyed values in one pass, one row at a time. A bad row is skipped
// and reported; it never undoes or blocks the rows around it.
package batch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Reasons a row is skipped.
const (
	ReasonMissing    = "missing"
	ReasonInvalid    = "invalid"
	ReasonFailed     = "failed"
	ReasonOutOfScope = "out_of_scope"
)

// Values maps a natural key (usually a student ID) to its raw submitted value.
// JSON strings, numbers and booleans are all accepted and kept as text; nulls are dropped.
type Values map[string]string

func (v *Values) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	vals := make(Values, len(raw))
	for key, msg := range raw {
		text := strings.TrimSpace(string(msg))
		switch {
		case text == "null":
			continue
		case strings.HasPrefix(text, `"`):
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return err
			}
			vals[key] = s
		default:
			vals[key] = text
		}
	}
	*v = vals
	return nil
}

// Result is the outcome of a batch.
type Result struct {
	Saved   int               `json:"saved"`
	Skipped map[string]string `json:"skipped"` // key -> reason
}

func (r *Result) skip(key, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[key] = reason
}

type (
	ParseFunc[T any] func(raw string) (T, error)
	WriteFunc[T any] func(ctx context.Context, key string, val T) error
)

// Upsert walks scope in order and writes every value that parses. Keys of values that are not
// in scope are reported as out of scope and never written. Only context cancellation aborts
// the walk; rows written before that stay written.
func Upsert[T any](ctx context.Context, scope []string, values Values, parse ParseFunc[T], write WriteFunc[T]) (Result, error) {
	res := Result{Skipped: make(map[string]string)}

	inScope := make(map[string]struct{}, len(scope))
	for _, key := range scope {
		inScope[key] = struct{}{}
	}
	for key := range values {
		if _, ok := inScope[key]; !ok {
			res.skip(key, ReasonOutOfScope)
		}
	}

	for _, key := range scope {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, "batch interrupted")
		}

		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			res.skip(key, ReasonMissing)
			continue
		}
		val, err := parse(strings.TrimSpace(raw))
		if err != nil {
			res.skip(key, ReasonInvalid)
			continue
		}
		if err := write(ctx, key, val); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, errors.Wrap(ctxErr, "batch interrupted")
			}
			res.skip(key, ReasonFailed)
			continue
		}
		res.Saved++
	}
	return res, nil
}
