// Package app wires configuration, storage, the auth service and the HTTP
// transport into a runnable application.
//
// The Application container owns the lifecycle: NewApplication loads
// configuration, initializes logging and OpenTelemetry, selects the storage
// backend and mounts the router. Run blocks until an interrupt signal and
// then shuts everything down gracefully.
package app
