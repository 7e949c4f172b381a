// Package ws implements the WebSocket hub for `perfwatch serve`.
//
// Hub manages a set of connected clients and pushes the latest report to
// all of them whenever the store holds a new evaluation. The store version
// is polled every interval; nothing is sent while it is unchanged.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the poll loop and blocks until ctx is cancelled, then
// closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// report immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "report",
//	  "data":  { /* same schema as GET /api/v1/report */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
