package key

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/memo-cache/types"
)

type point struct {
	X, Y int
}

type opaque struct {
	secret string
}

type customID string

func (c customID) Fingerprint() ([]byte, error) {
	return []byte("id:" + string(c)), nil
}

func TestFingerprint_Stable(t *testing.T) {
	args := Positional(1, "two", []int{3}).With("limit", 10).With("sort", "asc")

	first, err := Fingerprint(args)
	require.NoError(t, err)
	second, err := Fingerprint(args)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_NamedOrderIndependent(t *testing.T) {
	a := Positional("q").With("a", 1).With("b", 2).With("c", 3)
	b := Positional("q").With("c", 3).With("a", 1).With("b", 2)

	ka, err := Fingerprint(a)
	require.NoError(t, err)
	kb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
}

func TestFingerprint_Distinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b Args
	}{
		{"different value", Positional(1), Positional(2)},
		{"int vs string", Positional(1), Positional("1")},
		{"int vs float", Positional(1), Positional(1.0)},
		{"positional order", Positional(1, 2), Positional(2, 1)},
		{"positional vs named", Positional(1), Args{Named: map[string]any{"0": 1}}},
		{"named value", Positional().With("x", 1), Positional().With("x", 2)},
		{"named name", Positional().With("x", 1), Positional().With("y", 1)},
		{"split strings", Positional("ab", "c"), Positional("a", "bc")},
		{"struct fields", Positional(point{1, 2}), Positional(point{2, 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := Fingerprint(tt.a)
			require.NoError(t, err)
			kb, err := Fingerprint(tt.b)
			require.NoError(t, err)
			assert.NotEqual(t, ka, kb)
		})
	}
}

func TestFingerprint_SupportedValues(t *testing.T) {
	when := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	args := Positional(
		nil,
		true,
		uint8(7),
		map[string]any{"nested": []any{1, "x"}},
		&point{1, 2},
		when,
		customID("abc"),
	)

	_, err := Fingerprint(args)
	assert.NoError(t, err)
}

func TestFingerprint_Unhashable(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		args Args
	}{
		{"func", Positional(func() {})},
		{"chan", Positional(make(chan int))},
		{"complex", Positional(complex(1, 2))},
		{"nested func", Positional(map[string]any{"f": func() {}})},
		{"named chan", Positional().With("c", make(chan struct{}))},
		{"nan", Positional(math.NaN())},
		{"unexported state", Positional(opaque{secret: "x"})},
		{"cycle", Positional(cyclic)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fingerprint(tt.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrUnhashableArguments)
		})
	}
}

func TestArgsWith_DoesNotMutate(t *testing.T) {
	base := Positional(1).With("a", 1)
	_ = base.With("b", 2)

	assert.Len(t, base.Named, 1)
}
