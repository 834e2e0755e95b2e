// Package publish turns a set of changed files into a pull request against
// the registry repository.
//
// A run builds the Git objects directly through the host API instead of
// using a working copy:
//
//	base branch tip -> new branch ref -> blobs -> tree -> commit -> ref update -> pull request
//
// Blobs are created concurrently; every other step is sequential. Each step
// is reported to observers as an Event and traced in its own span. A failed
// step aborts the run with a publish error (E120) naming the step. The
// created branch is left behind unless WithRollback is set.
package publish
