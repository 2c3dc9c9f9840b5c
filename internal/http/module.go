// Package http defines how modules plug their routes into the API server.
package http

import (
	"context"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module mounts its routes on the groups the router hands it.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext holds the groups modules mount on. Protected sits under V1
// and already requires an access token.
type RouterContext struct {
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
}

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health. Usually the record store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api assembles for the router.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
