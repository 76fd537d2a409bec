// Package parser loads an update batch from disk.
//
// Batches are JSON arrays or YAML sequences of updates. Every batch is
// checked against an embedded CUE schema before decoding, so malformed input
// fails the run before any update is dispatched. Identity and category
// strings are NFC-normalized so visually identical keys reconcile together.
package parser
