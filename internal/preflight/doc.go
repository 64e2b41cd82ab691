// Package preflight provides readiness checks for the external tools,
// directories, and services scrivo depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll and CheckSystemDeps at startup so a missing
//     binary or unwritable directory surfaces before any item is claimed.
//   - The CLI "scrivo status" command displays the same checks as health
//     output.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
