package html

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func urlItem(content string) domain.RawItem {
	return domain.RawItem{Content: content, ContentType: domain.ContentTypeURL, CreatedAt: time.Now()}
}

func TestNormaliser_ContentTypes(t *testing.T) {
	assert.Equal(t, []domain.ContentType{domain.ContentTypeURL}, New().ContentTypes())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare link",
			content: "  https://example.com/article  \r\n",
			want:    "https://example.com/article",
		},
		{
			name:    "link with comment",
			content: "read later https://example.com/a?b=1&c=2",
			want:    "read later https://example.com/a?b=1&c=2",
		},
		{
			name: "page",
			content: `<html><head><title>Tax &amp; Receipts</title><style>p{}</style></head>
<body><script>track()</script><h1>Keep receipts</h1><p>Deductible up to <b>¥3,000</b>.</p>
<!-- ad --><p>See <a href="https://example.com/faq">the FAQ</a>.</p></body></html>`,
			want: "# Tax & Receipts\n\nKeep receipts\nDeductible up to ¥3,000.\nSee [the FAQ](https://example.com/faq).",
		},
		{
			name:    "preview with og title",
			content: `<meta property="og:title" content="Weekend Hike"><div>https://example.com/hike</div>`,
			want:    "# Weekend Hike\n\nhttps://example.com/hike",
		},
		{
			name:    "anchor without text",
			content: `<p><a href="https://example.com"></a></p>`,
			want:    "https://example.com",
		},
		{
			name:    "title already leads",
			content: `<title>Notes</title><body><h1>Notes</h1><p>body</p></body>`,
			want:    "Notes\nbody",
		},
	}

	n := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalise(urlItem(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractHTMLTitle(t *testing.T) {
	assert.Equal(t, "A B", extractHTMLTitle("<title>\n  A\n  B </title>"))
	assert.Equal(t, "", extractHTMLTitle("<title> </title>"))
	assert.Equal(t, "", extractHTMLTitle("<p>no title</p>"))
}
