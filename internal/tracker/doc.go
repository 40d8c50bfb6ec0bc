// Package tracker owns frame-to-frame identity assignment for detector boxes.
//
// Responsibilities: centroid computation, nearest-centroid matching under a
// distance threshold, the persistent identity table and its reset.
// Key types: Tracker, State, TrackedObject, Record.
//
// Each call to Tracker.ProcessFrame is one frame. Frames are serialised by
// the tracker lock; an identity can be claimed by at most one box per frame.
// No image, HTTP or SQL code is allowed in this package.
package tracker
