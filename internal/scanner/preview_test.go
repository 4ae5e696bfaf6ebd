package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview_TitleAndLines(t *testing.T) {
	markup := `<html><head><title>Checkout</title></head><body>
		<h1>Pay now</h1><p>Card number</p><div>Expiry</div><p>CVC</p>
		<script>ignored()</script></body></html>`

	assert.Equal(t, "Title: Checkout | Content: Pay now | Card number | Expiry", Preview(markup, 200))
}

func TestPreview_NoTitle(t *testing.T) {
	assert.Equal(t, "Content: hello", Preview(`<p>hello</p>`, 200))
}

func TestPreview_Empty(t *testing.T) {
	assert.Equal(t, "Content: ", Preview("", 200))
}

func TestPreview_LimitsBodyText(t *testing.T) {
	markup := "<p>" + strings.Repeat("a", 500) + "</p>"

	got := Preview(markup, 200)

	assert.Equal(t, "Content: "+strings.Repeat("a", 199), got,
		"the leading block break counts toward the limit")
}
