package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lsmc/internal/api/models"
	"lsmc/internal/engine"
	"lsmc/internal/metrics"
	"lsmc/internal/montecarlo"
)

const defaultDecimals = 6

// PriceHandler handles pricing requests
type PriceHandler struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
	timeout time.Duration
	// maxWorkers caps the parallelism a single request may ask for
	maxWorkers int
}

// NewPriceHandler creates a pricing handler. A zero timeout means requests
// run until the client goes away.
func NewPriceHandler(logger *zap.Logger, rec *metrics.Recorder, timeout time.Duration, maxWorkers int) *PriceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &PriceHandler{logger: logger, metrics: rec, timeout: timeout, maxWorkers: maxWorkers}
}

// Price handles POST /api/v1/price
func (h *PriceHandler) Price(c *gin.Context) {
	var req models.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_REQUEST", err.Error(), nil))
		return
	}

	cfg := req.Config()
	e, err := cfg.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_INPUT", err.Error(), nil))
		return
	}
	if e.Options.Workers > h.maxWorkers {
		e.Options.Workers = h.maxWorkers
	}
	if err := e.Options.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, configError(err))
		return
	}

	id := uuid.NewString()
	e.Logger = h.logger.With(zap.String("run_id", id))
	e.Metrics = h.metrics

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.Calculate(ctx)
	if err != nil {
		status, body := calculateError(err)
		h.logger.Warn("pricing failed", zap.String("run_id", id), zap.Error(err))
		c.JSON(status, body)
		return
	}

	decimals := req.Decimals
	if decimals <= 0 {
		decimals = defaultDecimals
	}
	resp := models.PriceResponse{
		ID:      id,
		Status:  "completed",
		Payoff:  e.Payoff.Name(),
		Style:   e.Exercise.Style.String(),
		Value:   decimal.NewFromFloat(res.Value).Round(decimals),
		Samples: res.Samples,
		Calibration: models.Calibration{
			Paths:         res.Calibration.Paths,
			ExerciseDates: len(res.Calibration.Dates) + 1,
			SkippedDates:  res.Calibration.Skipped(),
			InSampleValue: decimal.NewFromFloat(res.Calibration.InSampleValue).Round(decimals),
		},
		ElapsedMillis: time.Since(start).Milliseconds(),
	}
	if res.ErrorEstimate != nil && finite(*res.ErrorEstimate) {
		est := decimal.NewFromFloat(*res.ErrorEstimate).Round(decimals)
		resp.ErrorEstimate = &est
	}
	c.JSON(http.StatusOK, resp)
}

// finite reports whether x can be encoded as a decimal or JSON number.
func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func configError(err error) models.ErrorResponse {
	var cerr *engine.ConfigError
	if errors.As(err, &cerr) {
		return models.NewError("INVALID_CONFIG", err.Error(), map[string]interface{}{"field": cerr.Field})
	}
	return models.NewError("INVALID_CONFIG", err.Error(), nil)
}

func calculateError(err error) (int, models.ErrorResponse) {
	var conv *montecarlo.ConvergenceError
	switch {
	case errors.As(err, &conv):
		details := map[string]interface{}{
			"tolerance":   conv.Tolerance,
			"samples":     conv.Samples,
			"max_samples": conv.MaxSamples,
		}
		if finite(conv.ErrorEstimate) {
			details["error_estimate"] = conv.ErrorEstimate
		}
		return http.StatusUnprocessableEntity, models.NewError("ACCURACY_NOT_REACHED", err.Error(), details)
	case errors.Is(err, engine.ErrInvalidConfig), errors.Is(err, montecarlo.ErrInvalidConfig):
		return http.StatusBadRequest, configError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, models.NewError("TIMEOUT", err.Error(), nil)
	case errors.Is(err, context.Canceled):
		return 499, models.NewError("CANCELLED", err.Error(), nil)
	default:
		return http.StatusInternalServerError, models.NewError("PRICING_ERROR", err.Error(), nil)
	}
}
