// Package metrics provides build and webhook metrics for mapbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics never require nil checks:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	coordinator := build.NewCoordinator(cfg).WithRecorder(recorder)
//
// The Prometheus implementation registers every collector under the "mapbuilder"
// namespace and is exposed through HTTPHandler on /metrics.
package metrics
