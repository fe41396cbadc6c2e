// Package report filters system log entries and writes them out for the
// operator.
//
// This package contains writers for different output formats:
//   - TextWriter: the plain-text export, one block per entry
//   - MarkdownWriter: a summary table, a level pie chart and an entry table
//   - JSONWriter: the filtered entries with export metadata
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
