package db

import "time"

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 10
	defaultMinConns          int32         = 2
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Paging limits for result listings.
const (
	DefaultResultsLimit = 50
	MaxResultsLimit     = 1000
)

// Persistence operation names, used in errors and metrics.
const (
	opLoadProfile = "load profile"
	opListResults = "list results"
	opSaveRun     = "save run"
)

// Time duration constants
const (
	// HoursPerDay is the number of hours in a day
	HoursPerDay = 24 * time.Hour
)
