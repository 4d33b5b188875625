package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeySource     = "source"
	KeyDest       = "dest"
	KeyTarget     = "target"
	KeyPage       = "page"
	KeyOutput     = "output"
	KeyCount      = "count"
	KeyReason     = "reason"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Dest(d string) slog.Attr         { return slog.String(KeyDest, d) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Output(o string) slog.Attr       { return slog.String(KeyOutput, o) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
