// Package manager implements the list-and-edit workflow shared by the
// keyword, user agent and watchlist settings.
//
// A Manager[T] holds the last list the backend returned, at most one row
// being edited and a persistent new-entry form. It never merges local
// changes into the list: after every successful mutation the whole list
// is fetched again, and each fetch carries a generation number so a slow,
// outdated response cannot overwrite a newer one.
package manager
