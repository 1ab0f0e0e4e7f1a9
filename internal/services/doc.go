// Package services defines shared utilities consumed by the workflow, the
// unit pool, and the engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run, chunk, unit, and stage identifiers
//     for logging correlation.
//   - Structured error markers plus the Wrap helper that classify failures
//     by origin (setup, engine, postcondition, crash, assembly) so the run
//     boundary can report them consistently.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
