// Package googlebooks adapts the Google Books volumes API to the provider
// capability set.
package googlebooks
