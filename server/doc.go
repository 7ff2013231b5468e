// Package server exposes retrieval and question answering over HTTP.
//
// Routes:
//
//	POST /v1/retrieve  {"query": "...", "k": 5}
//	POST /v1/ask       {"question": "..."}
//	GET  /healthz
//	GET  /metrics      Prometheus exposition of metrics.Registry
//
// Every response carries an X-Request-ID header.
package server
