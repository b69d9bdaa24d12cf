package types

import "log/slog"

// Secret is a credential value (API token, webhook URL) that must never be
// written to logs in clear text.
type Secret string

// LogValue implements slog.LogValuer
func (x Secret) LogValue() slog.Value {
	if x == "" {
		return slog.StringValue("")
	}
	return slog.StringValue("[REDACTED]")
}

// Unsafe returns the raw value
func (x Secret) Unsafe() string {
	return string(x)
}
