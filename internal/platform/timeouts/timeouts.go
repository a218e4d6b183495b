// Package timeouts defines shared timeout constants used across the wallet.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// RPCRequest caps the time allowed for a single JSON-RPC call to the
// blockchain provider.
const RPCRequest = 15 * time.Second

// Ceremony caps how long a passkey registration or assertion ceremony may
// take before the platform authenticator request is abandoned.
const Ceremony = 60 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
