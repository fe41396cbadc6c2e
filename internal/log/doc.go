// Package log builds slog loggers that never print credentials.
//
// The backend issues bearer tokens and signs them with a shared secret, and
// the client stores a token on disk. Any of these can end up as a log
// attribute by accident (a request header dump, a config struct, an error
// string). SecureHandler wraps an slog.Handler and replaces such values
// with MaskValue before they are written.
//
// A value is masked when its key names a credential (authorization,
// password, token, jwt_secret, ...) or when the value itself looks like a
// JWT or an Authorization header value. http.Header attributes are copied
// with credential headers masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("login accepted", "user", name, "token", tok) // token is masked
//	slog.SetDefault(logger)
package log
