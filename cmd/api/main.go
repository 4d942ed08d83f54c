package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lsmc/internal/api"
	"lsmc/internal/logging"
	"lsmc/internal/metrics"
)

func main() {
	// Get configuration from environment
	port := getenv("API_PORT", "8080")
	logger, err := logging.New(os.Getenv("LSMC_LOG_LEVEL"), os.Getenv("API_ENV") != "production")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	timeout, err := time.ParseDuration(getenv("PRICE_TIMEOUT", "60s"))
	if err != nil {
		logger.Fatal("invalid PRICE_TIMEOUT", zap.Error(err))
	}
	maxWorkers, err := strconv.Atoi(getenv("MAX_WORKERS", "4"))
	if err != nil {
		logger.Fatal("invalid MAX_WORKERS", zap.Error(err))
	}
	var origins []string
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	router := api.NewRouter(logger, rec, api.Options{
		AllowedOrigins: origins,
		Timeout:        timeout,
		MaxWorkers:     maxWorkers,
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
