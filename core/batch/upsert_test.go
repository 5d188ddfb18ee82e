package batch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_UnmarshalJSON(t *testing.T) {
	var vals Values
	err := json.Unmarshal([]byte(`{"a": "P", "b": 45, "c": null, "d": true, "e": " 7 "}`), &vals)
	require.NoError(t, err)
	assert.Equal(t, Values{"a": "P", "b": "45", "d": "true", "e": " 7 "}, vals)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &vals))
}

func TestUpsert(t *testing.T) {
	parseInt := func(raw string) (int, error) { return strconv.Atoi(raw) }

	t.Run("skips bad rows and keeps going", func(t *testing.T) {
		written := make(map[string]int)
		write := func(_ context.Context, key string, v int) error {
			if key == "boom" {
				return errors.New("write failed")
			}
			written[key] = v
			return nil
		}

		scope := []string{"s1", "s2", "s3", "boom", "s4"}
		vals := Values{"s1": "10", "s2": "x", "boom": "1", "s4": "4", "stranger": "9"}

		res, err := Upsert(context.Background(), scope, vals, parseInt, write)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Saved)
		assert.Equal(t, map[string]int{"s1": 10, "s4": 4}, written)
		assert.Equal(t, map[string]string{
			"s2":       ReasonInvalid,
			"s3":       ReasonMissing,
			"boom":     ReasonFailed,
			"stranger": ReasonOutOfScope,
		}, res.Skipped)
	})

	t.Run("writes in scope order", func(t *testing.T) {
		var order []string
		write := func(_ context.Context, key string, _ int) error {
			order = append(order, key)
			return nil
		}
		res, err := Upsert(context.Background(), []string{"c", "a", "b"}, Values{"a": "1", "b": "2", "c": "3"}, parseInt, write)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Saved)
		assert.Empty(t, res.Skipped)
		assert.Equal(t, []string{"c", "a", "b"}, order)
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		write := func(_ context.Context, key string, _ int) error {
			if key == "a" {
				cancel()
			}
			return nil
		}
		res, err := Upsert(ctx, []string{"a", "b"}, Values{"a": "1", "b": "2"}, parseInt, write)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, res.Saved)
	})
}
