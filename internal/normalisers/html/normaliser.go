package html

import (
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.BodyNormaliser = (*Normaliser)(nil)

// Normaliser handles URL items.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// ContentTypes returns the content types this normaliser handles.
func (n *Normaliser) ContentTypes() []domain.ContentType {
	return []domain.ContentType{domain.ContentTypeURL}
}

// Normalise returns the readable text of an HTML fragment, headed by its
// title. Content without markup is only tidied.
func (n *Normaliser) Normalise(item domain.RawItem) (string, error) {
	content := item.Content
	if !looksLikeHTML(content) {
		return plaintext.Tidy(content), nil
	}

	title := extractHTMLTitle(content)
	text := stripHTML(content)
	if title != "" && !strings.HasPrefix(text, title) {
		text = strings.TrimSpace("# " + title + "\n\n" + text)
	}
	return text, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	anyTag            = regexp.MustCompile(`(?i)<(html|head|body|title|p|div|a|span|meta|h[1-6]|br|ul|li|article)\b`)
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	ogTitle           = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']*)["']`)
	anchorTag         = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

func looksLikeHTML(content string) bool {
	return anyTag.MatchString(content)
}

// extractHTMLTitle returns the <title>, or the og:title of a link preview.
func extractHTMLTitle(content string) string {
	for _, re := range []*regexp.Regexp{titleTag, ogTitle} {
		if m := re.FindStringSubmatch(content); len(m) > 1 {
			if title := strings.TrimSpace(html.UnescapeString(m[1])); title != "" {
				return multiSpaces.ReplaceAllString(title, " ")
			}
		}
	}
	return ""
}

// stripHTML removes HTML tags and extracts readable text content. Anchors
// keep their target so URLs survive into the note.
func stripHTML(content string) string {
	// Remove script, style, noscript, head, title and svg tags entirely
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, titleTag, svgTag, htmlComments} {
		content = re.ReplaceAllString(content, "")
	}

	content = anchorTag.ReplaceAllStringFunc(content, func(a string) string {
		m := anchorTag.FindStringSubmatch(a)
		text := strings.TrimSpace(allTags.ReplaceAllString(m[2], ""))
		href := m[1]
		if text == "" || text == href {
			return href
		}
		return "[" + text + "](" + href + ")"
	})

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	// Trim each line and remove empty lines
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
