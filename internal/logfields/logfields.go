package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyJobType    = "job_type"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyTarget     = "target"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyAsset      = "asset"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyEvent      = "event"
	KeyDelivery   = "delivery_id"
	KeyCount      = "count"
	KeyExpected   = "expected"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyError      = "error"
)

func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobType(t string) slog.Attr      { return slog.String(KeyJobType, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Target(name string) slog.Attr    { return slog.String(KeyTarget, name) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Asset(p string) slog.Attr        { return slog.String(KeyAsset, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Event(e string) slog.Attr        { return slog.String(KeyEvent, e) }
func Delivery(id string) slog.Attr    { return slog.String(KeyDelivery, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Expected(n int) slog.Attr        { return slog.Int(KeyExpected, n) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
