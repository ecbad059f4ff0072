// Package provider defines the uniform capability set metadata sources
// expose to the resolution engine, the candidate records they produce, the
// typed error kinds they report, and the rate-limited client that wraps each
// adapter with throttling, retries, and circuit breaking.
package provider
