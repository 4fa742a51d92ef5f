// Package history builds the batch history view: one row per batch folder
// with its content count and creation time, newest first.
//
// Every batch is read concurrently under a bound. A batch that cannot be read
// or parsed degrades to a zero count instead of failing the listing; only a
// failure to enumerate the batch folders is returned to the caller.
package history
