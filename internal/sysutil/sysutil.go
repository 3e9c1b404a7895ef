// Package sysutil holds process-level helpers with no domain knowledge:
// zerolog bootstrap and env-style flag parsing shared by the entrypoint and
// the config loader.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetLogLevel applies lvl to zerolog's global level. Matching is
// case-insensitive after trimming; empty or unrecognized values fall back to
// info.
func SetLogLevel(lvl string) {
	if l, ok := logLevels[strings.ToLower(strings.TrimSpace(lvl))]; ok {
		zerolog.SetGlobalLevel(l)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// IsTruthy reports whether v spells an affirmative flag value:
// "1", "true", "yes", "y" or "on", case-insensitive after trimming.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// IsFalsy reports whether v spells an explicit negative flag value:
// "0", "false", "no", "n" or "off". Unlike !IsTruthy it is false for
// unrecognized text, letting callers keep their own default.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	}
	return false
}
