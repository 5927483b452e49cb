// Package build runs the map build pipeline for one target.
//
// A Coordinator serializes builds per working copy through a LockTable and runs
// sync → discover → render → publish in sequence. Pipeline failures are recorded in the
// returned Report and logged; they never escape as panics and always release the lock.
package build
