// Package openlibrary adapts the Open Library search API to the provider
// capability set.
package openlibrary
