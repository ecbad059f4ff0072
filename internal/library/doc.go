// Package library models items owned by the external media library and
// provides the HTTP client used to page through and write back to it.
// Items are read-only inputs to a pass; the only write is UpdateItem at the
// interface boundary.
package library
