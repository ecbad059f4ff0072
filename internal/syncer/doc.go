// Package syncer orchestrates one metadata pass: page through library
// items, resolve and merge each under a bounded worker pool, write back
// eligible updates, and append an audit record for every processed item.
// Per-item failures never abort the pass.
package syncer
