package types

// ModelsResponse wraps the catalog returned by GET /models.
type ModelsResponse struct {
	// Selectable models.
	Models []ModelDescriptor `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: another client is connected
	Error string `json:"error" example:"another client is connected"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Model currently held by the executor's cache, if any.
	LoadedModel *ModelDescriptor `json:"loaded_model,omitempty"`
	// Whether a front-end is attached over the WebSocket bridge.
	ClientConnected bool `json:"client_connected"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
