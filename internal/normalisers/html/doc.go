// Package html provides a BodyNormaliser for shared links. A link shared
// with a preview arrives as an HTML fragment; its readable text is
// extracted and the page title becomes the note heading. A bare link is
// kept as written.
package html
