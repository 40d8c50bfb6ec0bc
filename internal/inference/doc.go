// Package inference holds the collaborators that turn an uploaded frame into
// tracker observations: image decoding, the detector, crop and resize, and
// the classifier.
//
// Detector and classifier are interfaces. The remote implementations talk to
// model servers over HTTP through httputil.HTTPClient; the static and
// aspect-ratio implementations serve dev mode and tests.
package inference
