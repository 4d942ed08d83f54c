// Package main prices an American put against its European twin
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leekchan/accounting"

	"lsmc/internal/black"
	"lsmc/internal/engine"
	"lsmc/internal/payoff"
	"lsmc/internal/process"
)

// Market contains the assumptions of the underlying simulation
type Market struct {
	Spot       float64
	Rate       float64
	Dividend   float64
	Volatility float64
}

// Contract is the option being valued
type Contract struct {
	Strike   float64
	Maturity float64
}

// Simulation holds the assumptions for the Monte Carlo simulation.
type Simulation struct {
	TimeSteps       int
	Runs            int
	PolynomialOrder int
	Seed            uint64
}

func main() {
	market := Market{
		Spot:       36,
		Rate:       0.06,
		Volatility: 0.2,
	}
	contract := Contract{
		Strike:   40,
		Maturity: 1,
	}
	sim := Simulation{
		TimeSteps:       50,
		Runs:            100_000,
		PolynomialOrder: 2,
		Seed:            355,
	}

	american, err := value(market, contract, sim, payoff.NewAmerican(0, contract.Maturity))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	european, err := value(market, contract, sim, payoff.NewEuropean(contract.Maturity))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Print currency
	ac := accounting.Accounting{Symbol: "$", Precision: 4}
	fmt.Println("American put:", ac.FormatMoney(american))
	fmt.Println("European put:", ac.FormatMoney(european))
	fmt.Println("Early exercise premium:", ac.FormatMoney(american-european))
}

// value runs the engine for one exercise schedule
func value(m Market, c Contract, sim Simulation, ex payoff.Exercise) (float64, error) {
	bs, err := process.NewBlackScholes(time.Now(), m.Spot, m.Rate, m.Dividend, m.Volatility)
	if err != nil {
		return 0, err
	}
	put, err := payoff.NewVanilla(payoff.Put, c.Strike)
	if err != nil {
		return 0, err
	}

	e := engine.Engine{
		Process:  bs,
		Discount: bs.DiscountCurve(),
		Payoff:   put,
		Exercise: ex,
		Options: engine.Options{
			TimeSteps:       sim.TimeSteps,
			RequiredSamples: sim.Runs,
			Antithetic:      true,
			ControlVariate:  true,
			PolynomialOrder: sim.PolynomialOrder,
			Seed:            sim.Seed,
		},
		Control: black.Vanilla{Process: bs, Payoff: put},
	}
	res, err := e.Calculate(context.Background())
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}
