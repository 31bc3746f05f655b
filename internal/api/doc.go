// Package api provides the HTTP REST API and WebSocket server for BrightMind.
//
// Every protected route runs behind the auth middleware, which validates the
// caller's JWT, re-checks the blocked flag against the database, and resolves
// an access scope (owned plus granted installations). Handlers consult that
// scope before touching installations, rooms, or devices; admins bypass it.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
