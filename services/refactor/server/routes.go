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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all refactor routes with the router.
//
// Description:
//
//	Registers all /v1/refactor/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Analysis Endpoints:
//
//	POST /v1/refactor/analyze - Project dependency analysis
//	POST /v1/refactor/graph - Function call graph with purity
//	POST /v1/refactor/compare - Export-surface breaking changes
//	GET  /v1/refactor/impact - Files affected by changing one file
//	GET  /v1/refactor/unused - Exports with no usage
//	GET  /v1/refactor/cycles - Circular dependency chains
//
// Baseline Endpoints:
//
//	POST /v1/refactor/scan - Save the Gold Standard baseline
//	POST /v1/refactor/verify - Verify against the baseline
//
// Health Endpoints:
//
//	GET  /v1/refactor/health - Health check
//
// Example:
//
//	handlers, _ := server.NewHandlers(engine, logger)
//
//	v1 := router.Group("/v1")
//	server.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	refactor := rg.Group("/refactor")
	{
		// Project analysis
		refactor.POST("/analyze", handlers.HandleAnalyze)
		refactor.POST("/graph", handlers.HandleGraph)
		refactor.POST("/compare", handlers.HandleCompare)
		refactor.GET("/impact", handlers.HandleImpact)
		refactor.GET("/unused", handlers.HandleUnused)
		refactor.GET("/cycles", handlers.HandleCycles)

		// Gold Standard baseline lifecycle
		refactor.POST("/scan", handlers.HandleScan)
		refactor.POST("/verify", handlers.HandleVerify)

		// Health checks
		refactor.GET("/health", handlers.HandleHealth)
	}
}
