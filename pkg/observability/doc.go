// Package observability provides the structured logger and Prometheus
// metrics used across the resolver.
package observability
