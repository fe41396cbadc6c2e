// Package tui implements the interactive terminal dashboard.
//
// The root Model owns a login gate and a tab shell. Exactly one tab view is
// mounted at a time; switching tabs discards the previous view together
// with its in-progress state. Every request issued by a view is tagged with
// the view's mount id and a generation number, and responses whose tag no
// longer matches are dropped.
package tui
