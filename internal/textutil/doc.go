// Package textutil provides text normalization, token fingerprints, and
// similarity scoring used by query caching and candidate matching.
package textutil
