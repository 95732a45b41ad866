// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/jobs/{kind}/trigger for manual job runs.
//   - POST /v1/scheduler/reschedule to change the job cadence at runtime.
//   - GET /v1/phones and /v1/phones/{devicename}/scrape for inventory reads.
package api
