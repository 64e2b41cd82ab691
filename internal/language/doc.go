// Package language normalizes language identifiers. Configuration accepts
// 2-letter codes, 3-letter codes, or English words ("english", "por");
// transcription backends want ISO 639-1 and user-facing output wants a
// display name, so both conversions live here.
package language
