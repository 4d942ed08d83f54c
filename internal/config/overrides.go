package config

import (
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LSMC_SEED.
const EnvPrefix = "LSMC"

// flagBindings maps viper keys (= flag names) to their env-derived aliases.
var flagBindings = []string{
	"seed",
	"required-samples",
	"required-tolerance",
	"max-samples",
	"time-steps",
	"time-steps-per-year",
	"calibration-samples",
	"workers",
	"antithetic",
	"control-variate",
	"rng",
	"basis",
	"log-level",
}

// RegisterFlags adds the override flags to fs.
func RegisterFlags(fs *flag.FlagSet) {
	fs.Uint64("seed", 0, "pricing RNG seed")
	fs.Int("required-samples", 0, "draw exactly this many samples")
	fs.Float64("required-tolerance", 0, "sample until the standard error is at most this")
	fs.Int("max-samples", 0, "sample budget in tolerance mode (0 = unlimited)")
	fs.Int("time-steps", 0, "number of simulation steps")
	fs.Int("time-steps-per-year", 0, "simulation steps per year")
	fs.Int("calibration-samples", 0, "paths used to fit the exercise rule")
	fs.Int("workers", 0, "parallel sampling workers")
	fs.Bool("antithetic", false, "use antithetic variates")
	fs.Bool("control-variate", false, "use the European closed form as a control variate")
	fs.String("rng", "", "pseudorandom or lowdiscrepancy")
	fs.String("basis", "", "regression basis: monomial, laguerre, hermite, legendre, chebyshev")
	fs.String("log-level", "", "debug, info, warn or error")
}

// ApplyOverrides layers environment variables and explicitly set flags over
// c. Precedence: flags > env > file. fs may be nil.
func ApplyOverrides(c *Config, fs *flag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range flagBindings {
		if err := v.BindEnv(key); err != nil {
			return err
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	ec := &c.Engine
	if v.IsSet("seed") {
		ec.Seed = v.GetUint64("seed")
	}
	// the accuracy and grid choices are mutually exclusive, so an
	// override replaces whichever one the file set
	exclusive(v, fs,
		pairSide{"required-samples", func() { ec.RequiredSamples = v.GetInt("required-samples") }, func() { ec.RequiredSamples = 0 }},
		pairSide{"required-tolerance", func() { ec.RequiredTolerance = v.GetFloat64("required-tolerance") }, func() { ec.RequiredTolerance = 0 }})
	exclusive(v, fs,
		pairSide{"time-steps", func() { ec.TimeSteps = v.GetInt("time-steps") }, func() { ec.TimeSteps = 0 }},
		pairSide{"time-steps-per-year", func() { ec.TimeStepsPerYear = v.GetInt("time-steps-per-year") }, func() { ec.TimeStepsPerYear = 0 }})
	if v.IsSet("max-samples") {
		ec.MaxSamples = v.GetInt("max-samples")
	}
	if v.IsSet("calibration-samples") {
		ec.CalibrationSamples = v.GetInt("calibration-samples")
	}
	if v.IsSet("workers") {
		ec.Workers = v.GetInt("workers")
	}
	if v.IsSet("antithetic") {
		ec.Antithetic = v.GetBool("antithetic")
	}
	if v.IsSet("control-variate") {
		ec.ControlVariate = v.GetBool("control-variate")
	}
	if v.IsSet("rng") {
		ec.RNG = v.GetString("rng")
	}
	if v.IsSet("basis") {
		ec.Basis = v.GetString("basis")
	}
	if v.IsSet("log-level") {
		c.Log.Level = v.GetString("log-level")
	}
	return nil
}

// override sources, lowest first
const (
	fromFile = iota
	fromEnv
	fromFlag
)

func source(v *viper.Viper, fs *flag.FlagSet, key string) int {
	switch {
	case fs != nil && fs.Changed(key):
		return fromFlag
	case v.IsSet(key):
		return fromEnv
	}
	return fromFile
}

type pairSide struct {
	key   string
	set   func()
	clear func()
}

// exclusive applies the overrides of a mutually exclusive pair. The side
// with the stronger source wins and clears its partner. Two sides from the
// same source are both applied, leaving the conflict to Validate.
func exclusive(v *viper.Viper, fs *flag.FlagSet, a, b pairSide) {
	sa, sb := source(v, fs, a.key), source(v, fs, b.key)
	switch {
	case sa == fromFile && sb == fromFile:
	case sa > sb:
		a.set()
		b.clear()
	case sb > sa:
		b.set()
		a.clear()
	default:
		a.set()
		b.set()
	}
}
