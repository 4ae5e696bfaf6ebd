package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

const checkoutPage = `<html><head><title>Checkout</title></head><body>
<p>target in main</p>
<iframe id="a" src="https://ads.example.net/slot?token=abc123"></iframe>
<iframe id="target-frame" srcdoc="<p>target inside</p>"></iframe>
</body></html>`

// execute runs the root command and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeHTML(t *testing.T, markup string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(markup), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "iframescan version dev\n", out)

	out, err = execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "iframescan version dev\n", out)
}

func TestDOM_Text(t *testing.T) {
	path := writeHTML(t, checkoutPage)

	out, err := execute(t, "", "dom", "--html-file", path, "--text", "target")
	require.NoError(t, err)
	assert.Contains(t, out, "DOM-only iframe XPath matches")
	assert.Contains(t, out, "1. /html/body//iframe[2]")
	assert.NotContains(t, out, "iframe[1]")
}

func TestDOM_JSONFromStdin(t *testing.T) {
	out, err := execute(t, checkoutPage, "dom", "--html-file", "-", "--text", "ads.example", "--format", "json")
	require.NoError(t, err)

	var lookup struct {
		Success bool     `json:"success"`
		Count   int      `json:"count"`
		XPaths  []string `json:"xpaths"`
	}
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &lookup))
	assert.True(t, lookup.Success)
	assert.Equal(t, 1, lookup.Count)
	assert.Equal(t, []string{"/html/body//iframe[1]"}, lookup.XPaths)
}

func TestDOM_EmptyText(t *testing.T) {
	path := writeHTML(t, checkoutPage)

	_, err := execute(t, "", "dom", "--html-file", path, "--text", " ")
	require.Error(t, err)
	assert.ErrorIs(t, err, scanner.ErrInvalidInput)
}

func TestScan_OfflineJSON(t *testing.T) {
	path := writeHTML(t, checkoutPage)

	out, err := execute(t, "", "scan", "--offline", "--html-file", path, "--text", "target", "--format", "json")
	require.NoError(t, err)

	var result scanner.Result
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &result))
	assert.Equal(t, scanner.StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Summary.TotalIframes)
	assert.Equal(t, 1, result.Summary.AccessibleIframes)
	assert.Equal(t, 1, result.Summary.InaccessibleIframes)
	assert.Equal(t, 2, result.Summary.TotalMatches)
	assert.Equal(t, "target", result.Summary.SearchText)
}

func TestScan_OfflineRedactsSrc(t *testing.T) {
	out, err := execute(t, checkoutPage, "scan", "--offline", "--html-file", "-", "--text", "target", "--format", "json", "--redact")
	require.NoError(t, err)
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, "REDACTED")
}

func TestScan_OfflineModes(t *testing.T) {
	out, err := execute(t, `<p>TARGET</p>`, "scan", "--offline", "--html-file", "-", "--text", "target",
		"--mode", "case-insensitive", "--format", "json")
	require.NoError(t, err)

	var result scanner.Result
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &result))
	require.Len(t, result.Matches, 1)
	assert.Equal(t, scanner.ModeCaseInsensitive, result.Matches[0].MatchedBy)
}

func TestScan_TextReport(t *testing.T) {
	out, err := execute(t, checkoutPage, "scan", "--offline", "--html-file", "-", "--text", "target")
	require.NoError(t, err)
	assert.Contains(t, out, "IFRAME SCAN REPORT")
	assert.Contains(t, out, "Main > Iframe[2]")
}

func TestScan_FlagErrors(t *testing.T) {
	path := writeHTML(t, checkoutPage)

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"no target", []string{"scan", "--text", "x"}, "url"},
		{"no text", []string{"scan", "--offline", "--html-file", path}, "text"},
		{"url with offline", []string{"scan", "--url", "https://shop.test", "--offline", "--text", "x"}, "offline"},
		{"unknown mode", []string{"scan", "--offline", "--html-file", path, "--text", "x", "--mode", "regex"}, "unknown match mode"},
		{"unknown format", []string{"scan", "--offline", "--html-file", path, "--text", "x", "--format", "xml"}, "unknown report format"},
		{"missing file", []string{"scan", "--offline", "--html-file", filepath.Join(t.TempDir(), "nope.html"), "--text", "x"}, "read html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestScan_CancelledContextIsStopped(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(checkoutPage))
	cmd.SetArgs([]string{"scan", "--offline", "--html-file", "-", "--text", "target", "--format", "json"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, cmd.ExecuteContext(ctx))

	var result scanner.Result
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, scanner.StatusStopped, result.Status)
	assert.Empty(t, result.Iframes)
}
