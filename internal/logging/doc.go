// Package logging wraps log/slog with the conventions used across chorus:
// console or JSON output selected by configuration, typed attribute helpers,
// component-scoped child loggers, and context-derived run/stage fields.
package logging
