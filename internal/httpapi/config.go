package httpapi

import "time"

// maxBodyBytes caps the size of one inbound WebSocket frame.
// Default 1 MiB; a generate command carries the full conversation.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum inbound frame size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// writeTimeout bounds a single event write to the client.
var writeTimeout = 5 * time.Second

// SetWriteTimeout sets the per-event write timeout (<=0 restores 5s).
func SetWriteTimeout(d time.Duration) {
	if d <= 0 {
		d = 5 * time.Second
	}
	writeTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added and
// WebSocket upgrades are accepted from same-host and loopback origins only.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
