// Package snapshot captures a point-in-time view of the book (published
// depth, resting orders and parked stops) and writes it as gob for
// consumers outside the engine.
//
// Capture must run while the caller holds the book's lock; the returned
// Snapshot shares nothing with the book.
package snapshot
