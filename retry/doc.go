// Package retry provides a generic bounded-retry executor with exponential
// backoff for transport-level resilience around backend calls. Failures are
// classified as retryable or fatal; fatal failures abort immediately, and
// only exhaustion of the attempt budget surfaces to the caller.
package retry
