// Package logging assembles the structured slog loggers used across
// vertdctl.
//
// It owns level parsing and the console/JSON handler selection so every
// component emits records with the same shape, and provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
