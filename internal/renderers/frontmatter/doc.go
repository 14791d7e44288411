// Package frontmatter renders notes as a YAML header followed by a
// Markdown body, and parses them back.
//
// Header fields appear in schema order, so the same metadata always renders
// to the same bytes:
//
//	---
//	id: 6f1c...
//	title: Team lunch
//	category: finance
//	tags: [food, team]
//	summary: |-
//	  Lunch with the team.
//	  Receipt kept.
//	---
//
//	Team lunch ¥3200, receipt kept
//
// Multi-line text uses literal block scalars, arrays use flow sequences and
// empty arrays are omitted. Text that would read back as another YAML type
// is quoted.
package frontmatter
