// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

// RouterOption configures the assembled router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	limit rate.Limit
	burst int
}

// WithRateLimit bounds request throughput. Zero or negative values
// disable limiting.
func WithRateLimit(perSecond float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		cfg.limit = rate.Limit(perSecond)
		cfg.burst = burst
	}
}

// RateLimitMiddleware rejects requests above the limiter's rate with
// 429 Too Many Requests.
//
// Thread Safety: rate.Limiter is safe for concurrent use.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// NewRouter assembles the refactor API router.
//
// Description:
//
//	Wires the otelgin middleware, an optional global rate limiter, the
//	/v1/refactor/* routes and the Prometheus /metrics endpoint. The
//	metric and trace providers themselves are configured by the caller
//	(the command bootstrap).
func NewRouter(handlers *Handlers, opts ...RouterOption) *gin.Engine {
	cfg := routerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-refactor"))
	if cfg.limit > 0 {
		router.Use(RateLimitMiddleware(rate.NewLimiter(cfg.limit, cfg.burst)))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	return router
}
