package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calcula-ai/price-bot/pkg/util"
)

type MetricsConfig struct {
	Skipper     Skipper
	MetricsPath string
}

var DefaultMetricsConfig = MetricsConfig{
	Skipper:     DefaultSkipper,
	MetricsPath: "/metrics",
}

// Metrics instruments request durations and serves the prometheus endpoint.
func Metrics() echo.MiddlewareFunc {
	return MetricsWithConfig(DefaultMetricsConfig)
}

func MetricsWithConfig(config MetricsConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultMetricsConfig.MetricsPath
	}

	histogram, err := util.GetHistogramVec("http_request_duration_seconds", "status", "method", "path")
	if err != nil {
		panic(err)
	}
	metricsHandler := echo.WrapHandler(promhttp.Handler())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			if c.Request().URL.Path == config.MetricsPath {
				return metricsHandler(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			histogram.
				WithLabelValues(
					strconv.Itoa(c.Response().Status),
					c.Request().Method,
					c.Path(),
				).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
