// Package testsupport provides shared fixtures for tests: temp-dir configs,
// scriptable provider adapters, and an in-memory library client.
package testsupport
