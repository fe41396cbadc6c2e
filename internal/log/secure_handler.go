package log

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys that are always masked, compared
// case-insensitively.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"bearer":              true,
	"jwt":                 true,
	"signing_key":         true,
	"session":             true,
	"session_id":          true,
	"sid":                 true,
	"credential":          true,
	"credentials":         true,
}

// sensitiveKeywords mask any key containing them, e.g. "admin_password"
// or "jwt_secret". The bare word "key" is left out because it would match
// "primary_key" and "keyword".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns mask values regardless of their key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT (header.payload.signature, base64url)
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^bearer\s+\S+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// PEM private keys
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
	// Tor onion service secret keys
	regexp.MustCompile(`== ed25519v1-secret:`),
}

// SecureHandler wraps an slog.Handler and masks sensitive attributes
// before passing records on.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a SecureHandler wrapping handler.
// A nil handler wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitize(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs masks attrs and returns a handler carrying them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitize(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitize masks a single attribute, descending into groups.
func sanitize(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = sanitize(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindAny:
		if header, ok := a.Value.Any().(http.Header); ok {
			return slog.Any(a.Key, maskHeader(header))
		}
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && IsSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// maskHeader returns a copy of header with credential headers masked.
func maskHeader(header http.Header) http.Header {
	clean := header.Clone()
	for name := range clean {
		if IsSensitiveKey(name) {
			clean[name] = []string{MaskValue}
		}
	}
	return clean
}

// IsSensitiveKey reports whether an attribute or header name denotes a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether a value looks like a credential.
func IsSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a text logger that masks credentials.
// verbose selects Debug level; otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose, slog.LevelWarn))))
}

// NewSecureJSONLogger creates a JSON logger that masks credentials.
// verbose selects Debug level; otherwise Warn.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose, slog.LevelWarn))))
}

// NewServerLogger creates the backend process logger. Servers log request
// and scheduler activity at Info, so the quiet level is Info rather than Warn.
func NewServerLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	opts := handlerOptions(verbose, slog.LevelInfo)
	if jsonFormat {
		return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}

func handlerOptions(verbose bool, quiet slog.Level) *slog.HandlerOptions {
	level := quiet
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
