// Package logging provides the shared slog construction helpers, standard
// field names, and progress sampling used across lacquer components.
package logging
