package config

import "time"

// Default timings used throughout the gateway
const (
	// DefaultShutdownTimeout bounds graceful shutdown of HTTP listeners
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout guards the HTTP listeners against slow clients
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultSessionCleanupInterval is how often expired sessions are swept
	DefaultSessionCleanupInterval = time.Minute

	// DefaultUploadPollInterval is the first wait between upload status polls
	DefaultUploadPollInterval = 2 * time.Second

	// DefaultUploadMaxPoll bounds how long an upload is polled
	DefaultUploadMaxPoll = 10 * time.Minute
)

// DefaultMaxResults is the search_cases page size when none is given
const DefaultMaxResults = 10

// DefaultGRPCStopTimeout bounds GracefulStop of the gRPC health service
const DefaultGRPCStopTimeout = 2 * time.Second

// DefaultBucketProbeTimeout bounds the startup check of the report bucket
const DefaultBucketProbeTimeout = 5 * time.Second
