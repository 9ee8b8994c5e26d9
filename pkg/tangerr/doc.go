// Package tangerr defines the closed set of error kinds the engine surfaces
// to callers, and the envelope used to carry them across the API boundary.
// Error kinds are implementation-language-neutral by design: callers match
// on Kind, never on Go error types, so the same vocabulary works across the
// HTTP/CLI frontends this package never imports.
package tangerr
