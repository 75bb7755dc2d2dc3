package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainTextPreviewStripsMarkdown(t *testing.T) {
	got := plainTextPreview("**Bold** and _italic_ with `code`", previewLength)
	require.Equal(t, "Bold and italic with code", got)
}

func TestPlainTextPreviewCollapsesBlocks(t *testing.T) {
	got := plainTextPreview("# Heading\n\nFirst paragraph.\n\n- item one\n- item two", previewLength)
	require.Equal(t, "Heading First paragraph. item one item two", got)
}

func TestPlainTextPreviewSkipsImages(t *testing.T) {
	got := plainTextPreview("before ![alt text](https://example.com/a.png) after", previewLength)
	require.Equal(t, "before after", got)
}

func TestPlainTextPreviewKeepsLinkText(t *testing.T) {
	got := plainTextPreview("see [the docs](https://example.com) for details", previewLength)
	require.Equal(t, "see the docs for details", got)
}

func TestPlainTextPreviewTruncates(t *testing.T) {
	long := strings.Repeat("word ", 50)
	got := plainTextPreview(long, 20)
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, len([]rune(got)), 21)
}

func TestPlainTextPreviewArabic(t *testing.T) {
	got := plainTextPreview("**مرحبا** بالعالم", previewLength)
	require.Equal(t, "مرحبا بالعالم", got)
}

func TestPlainTextPreviewEmpty(t *testing.T) {
	require.Empty(t, plainTextPreview("", previewLength))
	require.Empty(t, plainTextPreview("   \n\n", previewLength))
}
