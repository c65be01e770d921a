// Package logging configures structured slog output for shopsearch.
// Logs are JSON lines written to a size-rotated file under
// ~/.shopsearch/logs/, optionally mirrored to stderr when --debug is set.
// Standard output is reserved for query results.
package logging
