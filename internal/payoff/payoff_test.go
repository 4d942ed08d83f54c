package payoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsmc/internal/payoff"
)

func TestVanilla(t *testing.T) {
	t.Parallel()

	call, err := payoff.NewVanilla(payoff.Call, 100)
	require.NoError(t, err)
	put, err := payoff.NewVanilla(payoff.Put, 100)
	require.NoError(t, err)

	assert.Equal(t, 10.0, call.Value([]float64{110}))
	assert.Equal(t, 0.0, call.Value([]float64{90}))
	assert.Equal(t, 10.0, put.Value([]float64{90}))
	assert.Equal(t, 0.0, put.Value([]float64{110}))
	assert.Equal(t, 100.0, put.Scale())

	_, err = payoff.NewVanilla(payoff.Call, 0)
	require.ErrorIs(t, err, payoff.ErrInvalidPayoff)
}

func TestBasket(t *testing.T) {
	t.Parallel()

	state := []float64{90, 120}

	avg, err := payoff.NewBasket(payoff.Call, payoff.Average, 100, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg.Value(state))

	maxCall, err := payoff.NewBasket(payoff.Call, payoff.MaxOf, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 20.0, maxCall.Value(state))

	minPut, err := payoff.NewBasket(payoff.Put, payoff.MinOf, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, minPut.Value(state))

	_, err = payoff.NewBasket(payoff.Call, payoff.Average, 100, nil)
	require.ErrorIs(t, err, payoff.ErrInvalidPayoff)
}

func TestParse(t *testing.T) {
	t.Parallel()

	typ, err := payoff.ParseOptionType(" PUT ")
	require.NoError(t, err)
	assert.Equal(t, payoff.Put, typ)
	_, err = payoff.ParseOptionType("straddle")
	require.ErrorIs(t, err, payoff.ErrInvalidPayoff)

	style, err := payoff.ParseStyle("American")
	require.NoError(t, err)
	assert.Equal(t, payoff.American, style)
	_, err = payoff.ParseStyle("asian")
	require.ErrorIs(t, err, payoff.ErrInvalidExercise)

	kind, err := payoff.ParseBasketKind("max")
	require.NoError(t, err)
	assert.Equal(t, payoff.MaxOf, kind)
}

func TestExercise_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ex      payoff.Exercise
		wantErr bool
	}{
		{"european", payoff.NewEuropean(1), false},
		{"american", payoff.NewAmerican(0, 1), false},
		{"bermudan", payoff.NewBermudan([]float64{1, 0.5, 0.25}), false},
		{"no times", payoff.Exercise{Style: payoff.Bermudan}, true},
		{"expired", payoff.NewEuropean(0), true},
		{"american inverted", payoff.NewAmerican(1, 0.5), true},
		{"bermudan repeated", payoff.NewBermudan([]float64{0.5, 0.5}), true},
		{"european two times", payoff.Exercise{Style: payoff.European, Times: []float64{0.5, 1}}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.ex.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, payoff.ErrInvalidExercise)
				return
			}
			require.NoError(t, err)
		})
	}
}

type clock struct{ ref time.Time }

func (c clock) Time(d time.Time) float64 { return d.Sub(c.ref).Hours() / 24 / 365 }

func TestFromDates(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{ref.AddDate(0, 0, 73), ref.AddDate(0, 0, 365)}

	ber := payoff.FromDates(payoff.Bermudan, clock{ref}, dates)
	assert.InDeltaSlice(t, []float64{0.2, 1}, ber.Times, 1e-12)

	am := payoff.FromDates(payoff.American, clock{ref}, dates[1:])
	assert.InDeltaSlice(t, []float64{0, 1}, am.Times, 1e-12)
	assert.InDelta(t, 1, am.Maturity(), 1e-12)

	eu := payoff.FromDates(payoff.European, clock{ref}, dates)
	assert.Equal(t, payoff.European, eu.Style)
	assert.InDelta(t, 1, eu.Maturity(), 1e-12)
}
