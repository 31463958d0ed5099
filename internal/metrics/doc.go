// Package metrics records pipeline observability data.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so metrics never need nil checks at call sites:
//
//	p := pipeline.New(cfg, registry, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder registers its collectors with a caller-supplied registry.
// The CLI exposes that registry as a node_exporter textfile after a build
// (WriteTextfile) or over HTTP while watching (HTTPHandler).
package metrics
