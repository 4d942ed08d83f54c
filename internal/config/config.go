// Package config loads pricing requests from YAML files, with environment
// and flag overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"lsmc/internal/black"
	"lsmc/internal/engine"
	"lsmc/internal/lsm"
	"lsmc/internal/payoff"
	"lsmc/internal/process"
	"lsmc/internal/rng"
)

// dateLayout is the format of reference and exercise dates.
const dateLayout = "2006-01-02"

// Config is the on-disk pricing request (YAML). The same shape is accepted
// as JSON by the HTTP API.
type Config struct {
	Market   MarketConfig   `yaml:"market" json:"market"`
	Contract ContractConfig `yaml:"contract" json:"contract"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Log      LogConfig      `yaml:"log" json:"-"`
}

// MarketConfig describes the underlying(s). One spot selects a
// Black-Scholes process, several a correlated multi-asset process.
type MarketConfig struct {
	ReferenceDate string      `yaml:"reference_date" json:"reference_date,omitempty"`
	Spots         []float64   `yaml:"spots" json:"spots"`
	Volatilities  []float64   `yaml:"volatilities" json:"volatilities"`
	Dividends     []float64   `yaml:"dividends" json:"dividends,omitempty"`
	Rate          float64     `yaml:"rate" json:"rate"`
	Correlation   [][]float64 `yaml:"correlation" json:"correlation,omitempty"`
}

// ContractConfig describes the payoff and its exercise schedule.
type ContractConfig struct {
	Type   string  `yaml:"type" json:"type"`
	Strike float64 `yaml:"strike" json:"strike"`
	// Basket is empty for a vanilla on the first asset, otherwise
	// "average", "max" or "min".
	Basket  string    `yaml:"basket" json:"basket,omitempty"`
	Weights []float64 `yaml:"weights" json:"weights,omitempty"`

	Style    string  `yaml:"style" json:"style"`
	Maturity float64 `yaml:"maturity" json:"maturity"`
	// EarliestExercise applies to american exercise.
	EarliestExercise float64 `yaml:"earliest_exercise" json:"earliest_exercise,omitempty"`
	// ExerciseTimes (year fractions) or ExerciseDates list bermudan dates.
	ExerciseTimes []float64 `yaml:"exercise_times" json:"exercise_times,omitempty"`
	ExerciseDates []string  `yaml:"exercise_dates" json:"exercise_dates,omitempty"`
}

// EngineConfig mirrors engine.Options.
type EngineConfig struct {
	TimeSteps             int     `yaml:"time_steps" json:"time_steps,omitempty"`
	TimeStepsPerYear      int     `yaml:"time_steps_per_year" json:"time_steps_per_year,omitempty"`
	RequiredSamples       int     `yaml:"required_samples" json:"required_samples,omitempty"`
	RequiredTolerance     float64 `yaml:"required_tolerance" json:"required_tolerance,omitempty"`
	MaxSamples            int     `yaml:"max_samples" json:"max_samples,omitempty"`
	MinSamples            int     `yaml:"min_samples" json:"min_samples,omitempty"`
	Antithetic            bool    `yaml:"antithetic" json:"antithetic,omitempty"`
	ControlVariate        bool    `yaml:"control_variate" json:"control_variate,omitempty"`
	Seed                  uint64  `yaml:"seed" json:"seed,omitempty"`
	CalibrationSamples    int     `yaml:"calibration_samples" json:"calibration_samples,omitempty"`
	AntitheticCalibration bool    `yaml:"antithetic_calibration" json:"antithetic_calibration,omitempty"`
	SeedCalibration       uint64  `yaml:"seed_calibration" json:"seed_calibration,omitempty"`
	PolynomialOrder       int     `yaml:"polynomial_order" json:"polynomial_order,omitempty"`
	Basis                 string  `yaml:"basis" json:"basis,omitempty"`
	Workers               int     `yaml:"workers" json:"workers,omitempty"`
	RNG                   string  `yaml:"rng" json:"rng,omitempty"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads, defaults and validates a request file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads a request file without validating it.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the request by building an engine from it.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	e, err := c.Build()
	if err != nil {
		return err
	}
	return e.Options.Validate()
}

// Options converts the engine section.
func (ec EngineConfig) Options() engine.Options {
	return engine.Options{
		TimeSteps:             ec.TimeSteps,
		TimeStepsPerYear:      ec.TimeStepsPerYear,
		RequiredSamples:       ec.RequiredSamples,
		RequiredTolerance:     ec.RequiredTolerance,
		MaxSamples:            ec.MaxSamples,
		MinSamples:            ec.MinSamples,
		Antithetic:            ec.Antithetic,
		ControlVariate:        ec.ControlVariate,
		Seed:                  ec.Seed,
		CalibrationSamples:    ec.CalibrationSamples,
		AntitheticCalibration: ec.AntitheticCalibration,
		SeedCalibration:       ec.SeedCalibration,
		PolynomialOrder:       ec.PolynomialOrder,
		Basis:                 lsm.Family(ec.Basis),
		Workers:               ec.Workers,
		RNG:                   rng.Kind(ec.RNG),
	}
}

// Build assembles an engine for the request. Logger and metrics are left
// for the caller to attach.
func (c *Config) Build() (*engine.Engine, error) {
	ref, err := c.Market.reference()
	if err != nil {
		return nil, err
	}
	proc, disc, bs, err := c.Market.process(ref)
	if err != nil {
		return nil, fmt.Errorf("market config invalid: %w", err)
	}
	pay, vanilla, err := c.Contract.payoff(proc.Factors())
	if err != nil {
		return nil, fmt.Errorf("contract config invalid: %w", err)
	}
	ex, err := c.Contract.exercise(proc)
	if err != nil {
		return nil, fmt.Errorf("contract config invalid: %w", err)
	}

	e := &engine.Engine{
		Process:  proc,
		Discount: disc,
		Payoff:   pay,
		Exercise: ex,
		Options:  c.Engine.Options(),
	}
	if bs != nil && vanilla != nil {
		e.Control = black.Vanilla{Process: bs, Payoff: *vanilla}
	}
	return e, nil
}

func (m MarketConfig) reference() (time.Time, error) {
	if m.ReferenceDate == "" {
		return time.Time{}, nil
	}
	ref, err := time.Parse(dateLayout, m.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("market.reference_date: %w", err)
	}
	return ref, nil
}

func (m MarketConfig) process(ref time.Time) (process.Process, process.Discount, *process.BlackScholes, error) {
	switch len(m.Spots) {
	case 0:
		return nil, nil, nil, errors.New("market.spots is required")
	case 1:
		if len(m.Volatilities) != 1 {
			return nil, nil, nil, fmt.Errorf("%d volatilities for one spot", len(m.Volatilities))
		}
		var div float64
		if len(m.Dividends) > 0 {
			div = m.Dividends[0]
		}
		bs, err := process.NewBlackScholes(ref, m.Spots[0], m.Rate, div, m.Volatilities[0])
		if err != nil {
			return nil, nil, nil, err
		}
		return bs, bs.DiscountCurve(), bs, nil
	}

	n := len(m.Spots)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1)
	}
	if m.Correlation != nil {
		if len(m.Correlation) != n {
			return nil, nil, nil, fmt.Errorf("correlation has %d rows for %d assets", len(m.Correlation), n)
		}
		for i, row := range m.Correlation {
			if len(row) != n {
				return nil, nil, nil, fmt.Errorf("correlation row %d has %d entries", i, len(row))
			}
		}
		for i, row := range m.Correlation {
			for j := i; j < n; j++ {
				if row[j] != m.Correlation[j][i] {
					return nil, nil, nil, fmt.Errorf("correlation is not symmetric at (%d,%d)", i, j)
				}
				corr.SetSym(i, j, row[j])
			}
		}
	}
	ma, err := process.NewMultiAsset(ref, m.Spots, m.Volatilities, m.Dividends, m.Rate, corr)
	if err != nil {
		return nil, nil, nil, err
	}
	return ma, ma.DiscountCurve(), nil, nil
}

// payoff returns the payoff, and the vanilla when it is one.
func (cc ContractConfig) payoff(factors int) (payoff.Payoff, *payoff.Vanilla, error) {
	typ, err := payoff.ParseOptionType(cc.Type)
	if err != nil {
		return nil, nil, err
	}
	if cc.Basket == "" {
		v, err := payoff.NewVanilla(typ, cc.Strike)
		if err != nil {
			return nil, nil, err
		}
		return v, &v, nil
	}
	kind, err := payoff.ParseBasketKind(cc.Basket)
	if err != nil {
		return nil, nil, err
	}
	if kind == payoff.Average && len(cc.Weights) != factors {
		return nil, nil, fmt.Errorf("%d basket weights for %d assets", len(cc.Weights), factors)
	}
	b, err := payoff.NewBasket(typ, kind, cc.Strike, cc.Weights)
	if err != nil {
		return nil, nil, err
	}
	return b, nil, nil
}

func (cc ContractConfig) exercise(proc process.Process) (payoff.Exercise, error) {
	style, err := payoff.ParseStyle(cc.Style)
	if err != nil {
		return payoff.Exercise{}, err
	}

	var ex payoff.Exercise
	switch {
	case len(cc.ExerciseDates) > 0:
		dates := make([]time.Time, len(cc.ExerciseDates))
		for i, s := range cc.ExerciseDates {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return payoff.Exercise{}, fmt.Errorf("contract.exercise_dates[%d]: %w", i, err)
			}
			dates[i] = d
		}
		ex = payoff.FromDates(style, proc, dates)
	case style == payoff.Bermudan:
		ex = payoff.NewBermudan(cc.ExerciseTimes)
	case style == payoff.American:
		ex = payoff.NewAmerican(cc.EarliestExercise, cc.Maturity)
	default:
		ex = payoff.NewEuropean(cc.Maturity)
	}
	if err := ex.Validate(); err != nil {
		return payoff.Exercise{}, err
	}
	return ex, nil
}
