// Package auth provides HTTP middleware for API key authentication on the
// perfwatch server.
//
// The key is read from a configurable header (default X-API-Key). WebSocket
// clients that cannot set headers may pass it as the api_key query
// parameter instead.
package auth
