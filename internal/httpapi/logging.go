package httpapi

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Disabled until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-connection frame logging.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("CHATD_LOG_FRAMES"); v == "1" {
		return LevelDebug
	}
	return parseLevel(os.Getenv("CHATD_HTTP_LOG_LEVEL"))
}()

// requestLogLevel honours ?log= and X-Log-Level overrides. At LevelDebug
// every command and event frame is logged.
func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

func logEvent(lvl LogLevel, r *http.Request) *zerolog.Event {
	var ev *zerolog.Event
	switch {
	case lvl >= LevelDebug:
		ev = zlog.Debug()
	case lvl >= LevelInfo:
		ev = zlog.Info()
	default:
		return nil
	}
	return ev.Str("path", r.URL.Path).Str("remote", r.RemoteAddr)
}
