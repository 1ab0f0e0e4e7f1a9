// Package preflight provides readiness checks for the external tools and
// filesystem paths a mastering run depends on.
//
// These checks run in two contexts:
//   - The CLI "lacquer doctor" command runs the full set to display run
//     readiness before a user commits hours of audio to a doomed setup.
//   - The master command runs RunAll before dispatching work so a missing
//     binary or unwritable directory fails in seconds, not mid-run.
//
// Checks never mutate anything; they only observe and report.
package preflight
