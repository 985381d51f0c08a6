// Package retry provides backoff retry and fixed-interval polling for
// transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max
// attempts, initial delay, and maximum delay. [Poll] repeats a probe at a
// fixed interval until it reports done or a deadline expires. Both are used
// around control-plane API calls and remote shell sessions that may fail
// transiently.
package retry
