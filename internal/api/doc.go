// Package api provides the HTTP REST API server for Inventory Core.
//
// It exposes session management (login, refresh, logout), the current-user
// endpoint, user administration, and the audit trail to the web, desktop,
// and mobile clients.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
