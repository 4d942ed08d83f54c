package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leekchan/accounting"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"lsmc/internal/config"
	"lsmc/internal/logging"
	"lsmc/internal/lsm"
	"lsmc/internal/montecarlo"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "price":
		os.Exit(cmdPrice(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli price --config examples/american_put.yaml [--seed 7] [--required-samples 100000]")
	fmt.Println("  cli check --config examples/basket_bermudan.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - flags override the file, LSMC_* environment variables override the file but not flags")
	fmt.Println("  - --report prints the per-date calibration summary")
}

func cmdPrice(args []string) int {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to YAML pricing request")
	report := fs.Bool("report", false, "Print the calibration report")
	config.RegisterFlags(fs)
	_ = fs.Parse(args)

	cfg, err := load(*cfgPath, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	e, err := cfg.Build()
	if err != nil {
		logger.Error("invalid request", zap.Error(err))
		return 2
	}
	e.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := e.Calculate(ctx)
	if err != nil {
		var conv *montecarlo.ConvergenceError
		if errors.As(err, &conv) {
			fmt.Fprintf(os.Stderr, "accuracy not reached: error %.6f > tolerance %.6f after %d samples\n",
				conv.ErrorEstimate, conv.Tolerance, conv.Samples)
			return 1
		}
		logger.Error("pricing failed", zap.Error(err))
		return 1
	}

	ac := accounting.Accounting{Symbol: "$", Precision: 4}
	fmt.Println("Payoff:", e.Payoff.Name(), "-", e.Exercise.Style)
	fmt.Println("Value:", ac.FormatMoney(res.Value))
	if res.ErrorEstimate != nil {
		fmt.Println("Error estimate:", ac.FormatMoney(*res.ErrorEstimate))
	} else {
		fmt.Println("Error estimate: n/a (low-discrepancy sampling)")
	}
	fmt.Printf("Samples: %d\n", res.Samples)
	if *report {
		printReport(res.Calibration, ac)
	}
	return 0
}

func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to YAML pricing request")
	config.RegisterFlags(fs)
	_ = fs.Parse(args)

	cfg, err := load(*cfgPath, fs)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("ok")
	return 0
}

func load(path string, fs *flag.FlagSet) (*config.Config, error) {
	if path == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printReport(r lsm.Report, ac accounting.Accounting) {
	fmt.Printf("Calibration: %d paths, in-sample value %s, %d dates skipped\n",
		r.Paths, ac.FormatMoney(r.InSampleValue), r.Skipped())
	fmt.Printf("%8s %10s %10s %10s %s\n", "index", "time", "itm", "exercised", "")
	for _, d := range r.Dates {
		note := ""
		if d.Skipped {
			note = "skipped"
		}
		fmt.Printf("%8d %10.4f %10d %10d %s\n", d.Index, d.Time, d.InTheMoney, d.Exercised, note)
	}
}
