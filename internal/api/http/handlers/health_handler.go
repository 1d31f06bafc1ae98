package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fleet-helpdesk/internal/persistence"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	bucket      storage.Bucket
	bucketName  string
}

// HealthDependencies lists what readiness checks. Nil or unconfigured backends are skipped.
type HealthDependencies struct {
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Bucket     storage.Bucket
	BucketName string
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    deps.Postgres,
		redis:       deps.Redis,
		bucket:      deps.Bucket,
		bucketName:  deps.BucketName,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}

	if h.postgres.Configured() {
		check("postgres", h.postgres.Ping)
	} else {
		depStatus["postgres"] = "in-memory"
	}
	if h.redis.Configured() {
		check("redis", h.redis.Ping)
	}
	if h.bucket != nil {
		check("bucket", func(ctx context.Context) error {
			return h.bucket.EnsureBucket(ctx, h.bucketName)
		})
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
