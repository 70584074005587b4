// Package logging provides a structured, subsystem-tagged logging system for
// the broker built on top of log/slog.
//
// # Log Levels
//   - Debug: verbose diagnostic detail
//   - Info: normal operational messages
//   - Warn: recoverable anomalies
//   - Error: failures worth operator attention
//
// # Subsystems
//
// Every call site names the component emitting the entry ("Registry",
// "Upstream", "SkillStore", "Exec", "Sandbox", ...), which lets operators
// filter logs without a separate tagging scheme.
//
// # Audit events
//
// Audit records security- and execution-relevant outcomes (consent
// decisions, exec results, skill CRUD) as a single structured INFO line
// prefixed "[AUDIT]". It passes through the normal level filter, so audit
// lines are dropped when the filter is set above INFO.
package logging
