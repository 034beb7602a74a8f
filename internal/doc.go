// Package internal documents the conference directory server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: conferences, events, and admin users with their validation rules
// - calendar: add-to-calendar links and iCalendar documents
// - storage: the PostgreSQL store, the in-memory fallback, and migrations
// - seed: YAML datasets loaded into an empty directory
// - auth, audit, config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
