package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHAR_DevtoolsLayout(t *testing.T) {
	data := []byte(`{"log": {"version": "1.2", "entries": [
		{"request": {"method": "POST", "url": "https://site.test/login", "postData": {"mimeType": "application/json", "text": "{}"}},
		 "response": {"status": 200, "content": {"mimeType": "text/html", "text": "<p>ok</p>"}}}
	]}}`)

	har, err := ParseHAR(data)

	require.NoError(t, err)
	require.Len(t, har.Entries, 1)
	assert.Equal(t, "POST", har.Entries[0].Request.Method)
	assert.Equal(t, "{}", har.Entries[0].Request.Body)
	assert.Equal(t, "<p>ok</p>", har.Entries[0].Response.Content.Text)
}

func TestParseHAR_ReducedLayout(t *testing.T) {
	data := []byte(`{"entries": [{"request": {"method": "GET", "url": "https://site.test/"},
		"response": {"status": 302, "headers": [{"name": "Location", "value": "/home"}], "content": {"mimeType": "", "text": ""}}}]}`)

	har, err := ParseHAR(data)

	require.NoError(t, err)
	require.Len(t, har.Entries, 1)
	assert.Equal(t, 302, har.Entries[0].Response.Status)
}

func TestParseHAR_Invalid(t *testing.T) {
	_, err := ParseHAR([]byte(`not json`))
	assert.ErrorContains(t, err, "parse HAR JSON")
}

func TestSaveHAR_LoadHAR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.har.json")
	har := Site(map[string]string{"https://site.test/": "<iframe src='/frame'></iframe>"})

	require.NoError(t, SaveHAR(path, har))
	loaded := MustLoadHAR(t, path)

	assert.Equal(t, har, loaded)
}
