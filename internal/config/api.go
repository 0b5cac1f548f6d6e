package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/foreman/pkg/formatting"
	"github.com/JaimeStill/foreman/pkg/middleware"
	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

const (
	EnvAPIBasePath     = "FOREMAN_API_BASE_PATH"
	EnvAPIMaxBodySize  = "FOREMAN_API_MAX_BODY_SIZE"
	EnvAPIBatchWorkers = "FOREMAN_API_BATCH_WORKERS"
	EnvAPIMaxBatch     = "FOREMAN_API_MAX_BATCH"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "FOREMAN_CORS_ENABLED",
	Origins:          "FOREMAN_CORS_ORIGINS",
	AllowedMethods:   "FOREMAN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "FOREMAN_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "FOREMAN_CORS_EXPOSED_HEADERS",
	AllowCredentials: "FOREMAN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "FOREMAN_CORS_MAX_AGE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "FOREMAN_OPENAPI_TITLE",
	Description: "FOREMAN_OPENAPI_DESCRIPTION",
	Enabled:     "FOREMAN_OPENAPI_ENABLED",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "FOREMAN_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "FOREMAN_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, request limits, CORS, and pagination settings.
// BatchWorkers bounds concurrent workflow runs per batch; zero uses one per
// CPU. MaxBatch caps the requests a single batch may carry.
type APIConfig struct {
	BasePath     string                `toml:"base_path"`
	MaxBodySize  string                `toml:"max_body_size"`
	BatchWorkers int                   `toml:"batch_workers"`
	MaxBatch     int                   `toml:"max_batch"`
	CORS         middleware.CORSConfig `toml:"cors"`
	OpenAPI      openapi.Config        `toml:"openapi"`
	Pagination   pagination.Config     `toml:"pagination"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes. Finalize guarantees it parses.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxBodySize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, OpenAPI and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	if overlay.BatchWorkers != 0 {
		c.BatchWorkers = overlay.BatchWorkers
	}
	if overlay.MaxBatch != 0 {
		c.MaxBatch = overlay.MaxBatch
	}

	c.CORS.Merge(&overlay.CORS)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = 50
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
	for env, field := range map[string]*int{
		EnvAPIBatchWorkers: &c.BatchWorkers,
		EnvAPIMaxBatch:     &c.MaxBatch,
	} {
		if n, err := strconv.Atoi(os.Getenv(env)); err == nil {
			*field = n
		}
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
}

func (c *APIConfig) validate() error {
	if c.BasePath == "/" || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single path segment: %s", c.BasePath)
	}
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_body_size must be positive")
	}
	if c.BatchWorkers < 0 {
		return fmt.Errorf("batch_workers must not be negative")
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("max_batch must be positive")
	}
	return nil
}
