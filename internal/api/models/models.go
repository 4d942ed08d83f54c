package models

import (
	"github.com/shopspring/decimal"

	"lsmc/internal/config"
)

// PriceRequest is the body of POST /api/v1/price.
type PriceRequest struct {
	Market   config.MarketConfig   `json:"market"`
	Contract config.ContractConfig `json:"contract"`
	Engine   config.EngineConfig   `json:"engine"`
	// Decimals rounds value and error estimate; zero means 6.
	Decimals int32 `json:"decimals,omitempty"`
}

// Config converts the request into a pricing config.
func (r PriceRequest) Config() config.Config {
	return config.Config{Market: r.Market, Contract: r.Contract, Engine: r.Engine}
}

// PriceResponse is the result of one pricing run
type PriceResponse struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	Payoff        string           `json:"payoff"`
	Style         string           `json:"style"`
	Value         decimal.Decimal  `json:"value"`
	ErrorEstimate *decimal.Decimal `json:"error_estimate"`
	Samples       int              `json:"samples"`
	Calibration   Calibration      `json:"calibration"`
	ElapsedMillis int64            `json:"elapsed_ms"`
}

// Calibration summarizes the regression pass
type Calibration struct {
	Paths         int             `json:"paths"`
	ExerciseDates int             `json:"exercise_dates"`
	SkippedDates  int             `json:"skipped_dates"`
	InSampleValue decimal.Decimal `json:"in_sample_value"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewError builds an ErrorResponse.
func NewError(code, message string, details map[string]interface{}) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}
