// Package inbox provides a directory-based chat transport.
//
// Each file dropped into the inbox directory is one raw item. The file
// extension selects the content type:
//
//	.txt, .md     text
//	.url          url
//	.transcript   voice-transcript
//
// The outcome of an item is written to the outbox directory as
// <name>.md (the rendered note) or <name>.error.txt (the failure reason),
// and the source file is moved into the inbox's done/ or failed/
// subdirectory so it is not picked up again.
//
// Writers should create files atomically (write elsewhere, then rename
// into the inbox). Empty files are ignored until they receive content.
package inbox
