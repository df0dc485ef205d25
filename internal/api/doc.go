// Package api is the HTTP client for the remote queue service.
//
// Every remote operation goes through a uniform request/response helper that
// decodes the service's JSON error payloads into the shared error taxonomy
// (validation, duplicate, transient, server-reported). The service has no
// push channel; callers that need liveness poll the endpoints here.
package api
