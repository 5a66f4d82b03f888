// Package health checks the dependencies a node identifier deployment relies
// on: the sources file, the Redis row store, the etcd endpoints that drive
// rebuilds, and the built schema itself.
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    health.FileCheck("sources.yaml"),
//	    health.RedisCheck(ctx, client),
//	    health.EtcdCheck(ctx, []string{"etcd-0:2379"}),
//	    health.SchemaCheck(schema),
//	)
//	if overall.IsUnhealthy() {
//	    log.Printf("health check failed: %s %v", overall.Message, overall.Details)
//	}
//
// # Status Priority
//
// Combine reports unhealthy if any check is unhealthy, degraded if any check
// is degraded and none unhealthy, and healthy otherwise.
//
// A schema that built with registration diagnostics is degraded: it serves
// identifiers, but some shapes have no handler.
package health
