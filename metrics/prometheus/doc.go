// Package prometheus exposes kmerdb load, query and healthcheck metrics
// through the Prometheus client library.
//
//	reg := prometheus.NewRegistry()
//	g, err := kmerdb.Open(ctx, "graph.kdb",
//		kmerdb.WithMetricsCollector(kprom.NewCollector(reg)))
package prometheus
