package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/nodeid"
)

// DefaultTimeout bounds checks given a nil context.
const DefaultTimeout = 5 * time.Second

// FileCheck verifies that a file or directory exists.
func FileCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Unhealthy(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{
					"path": path,
				},
			)
		}

		return Unhealthy(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}

	return Healthy(fmt.Sprintf("%s '%s' exists", fileType, path))
}

// NetworkCheck verifies TCP connectivity to address ("host:port").
// If ctx is nil, DefaultTimeout applies.
func NetworkCheck(ctx context.Context, address string) Status {
	if address == "" {
		return Unhealthy("address cannot be empty", nil)
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return Unhealthy(
			fmt.Sprintf("invalid address: %s", address),
			map[string]any{"address": address, "error": err.Error()},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// RedisCheck pings the Redis row store.
func RedisCheck(ctx context.Context, client *redis.Client) Status {
	if client == nil {
		return Unhealthy("redis client is not configured", nil)
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
	}

	addr := client.Options().Addr
	if err := client.Ping(ctx).Err(); err != nil {
		return Unhealthy(
			fmt.Sprintf("redis at %s is unreachable", addr),
			map[string]any{
				"address": addr,
				"error":   err.Error(),
			},
		)
	}
	return Healthy(fmt.Sprintf("redis at %s responded to ping", addr))
}

// EtcdCheck dials every etcd endpoint. Some endpoints down is degraded; all
// down is unhealthy.
func EtcdCheck(ctx context.Context, endpoints []string) Status {
	if len(endpoints) == 0 {
		return Unhealthy("no etcd endpoints configured", nil)
	}

	var down []string
	for _, ep := range endpoints {
		if NetworkCheck(ctx, ep).IsUnhealthy() {
			down = append(down, ep)
		}
	}

	switch {
	case len(down) == 0:
		return Healthy(fmt.Sprintf("all %d etcd endpoint(s) reachable", len(endpoints)))
	case len(down) == len(endpoints):
		return Unhealthy("no etcd endpoint is reachable", map[string]any{"unreachable": down})
	default:
		return Degraded(
			fmt.Sprintf("%d of %d etcd endpoint(s) unreachable", len(down), len(endpoints)),
			map[string]any{"unreachable": down},
		)
	}
}

// SchemaCheck reports on a built schema. A schema with registration
// diagnostics is degraded; a missing schema or one without handlers is
// unhealthy.
func SchemaCheck(schema *nodeid.Schema) Status {
	if schema == nil {
		return Unhealthy("no schema loaded", nil)
	}

	handlers := schema.Registry().Len()
	if handlers == 0 {
		return Unhealthy("schema has no node identifier handlers", nil)
	}

	if diags := schema.Diagnostics(); len(diags) > 0 {
		msgs := make([]string, len(diags))
		for i, d := range diags {
			msgs[i] = d.String()
		}
		return Degraded(
			fmt.Sprintf("schema has %d handler(s) and %d diagnostic(s)", handlers, len(diags)),
			map[string]any{"diagnostics": msgs},
		)
	}

	return Healthy(fmt.Sprintf("schema has %d handler(s)", handlers))
}

// Combine aggregates multiple checks into a single status.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	var healthyCount int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthyChecks = append(unhealthyChecks, msg)
		case StatusDegraded:
			degradedChecks = append(degradedChecks, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	if len(degradedChecks) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
