// Package iox provides small I/O helpers for resource cleanup.
package iox

import "io"

// DiscardClose closes c and discards the error. Use in defer statements
// where a close failure is unactionable, e.g. an HTTP response body:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for accumulating
// into a slice of deferred releases:
//
//	cleanup = append(cleanup, iox.CloseFunc(conn))
func CloseFunc(c io.Closer) func() error {
	return c.Close
}

// DiscardErr calls fn and discards the returned error. Use for non-Close
// cleanup calls (e.g. Flush, Sync) where the error is unactionable:
//
//	defer iox.DiscardErr(w.Flush)
func DiscardErr(fn func() error) { _ = fn() }
