// Package pattern extracts domain values from raw text with deterministic
// rules: currency amounts, calendar dates, durations, activity keywords,
// wikilinks, flag keywords and source URLs.
//
// Extraction is pure. The same text always yields the same fields, and no
// state is shared between calls, so an Extractor is safe for concurrent use.
//
// Rules run in a fixed order and are additive: a field set by an earlier
// rule is never overwritten by a later one.
package pattern
