// Package dirstat walks directory trees and feeds every regular file into a
// bounded top-N size tracker.
//
// It walks with fastwalk without following symlinks, optionally pruning
// hidden entries and entries on a different filesystem than the root.
// Per-entry errors are logged and counted without stopping the walk.
package dirstat
