package scanner_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/iframe-scanner/internal/htmlframe"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

const nestedPage = `<html><body>
<p>target in main</p>
<iframe id="a" srcdoc="<iframe id='b' srcdoc='<p>deep target</p>'></iframe><p>mid target</p>"></iframe>
<iframe id="c" src="https://site.test/child.html"></iframe>
</body></html>`

func nestedLoader() *htmlframe.Loader {
	return htmlframe.New(
		htmlframe.WithBaseURL("https://site.test/"),
		htmlframe.WithSource("https://site.test/child.html", "<title>Child</title><p>child target</p>"),
	)
}

func runScan(t *testing.T, s *scanner.Scanner, loader scanner.Loader, markup string) *scanner.Result {
	t.Helper()

	result, err := s.Scan(context.Background(), loader, scanner.Request{HTMLSource: markup, SearchText: "target"})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestScan_MixedAccessibility(t *testing.T) {
	markup := `<iframe src="http://other.example/"></iframe><iframe srcdoc="<p>target</p>"></iframe>`

	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), htmlframe.New(), markup)

	assert.Equal(t, scanner.StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Summary.TotalIframes)
	assert.Equal(t, 1, result.Summary.AccessibleIframes)
	assert.Equal(t, 1, result.Summary.InaccessibleIframes)
	assert.Equal(t, 1, result.Summary.TotalMatches)

	blocked := result.Iframes[0]
	assert.False(t, blocked.Accessible)
	assert.True(t, strings.HasPrefix(blocked.Error, "cross-origin:"), blocked.Error)
	assert.Equal(t, "http://other.example/", blocked.Src)
	assert.Empty(t, blocked.Preview)

	open := result.Iframes[1]
	assert.True(t, open.Accessible)
	assert.Empty(t, open.Error)
	assert.Equal(t, 1, open.MatchesFound)
	assert.Equal(t, "Content: target", open.Preview)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "Main > Iframe[2]", result.Matches[0].LocationPath)
	assert.Equal(t, "/html[1]/body[1]/iframe[2]/html[1]/body[1]/p[1]", result.Matches[0].ElementXPath)
}

func TestScan_EmptySearchText(t *testing.T) {
	result, err := scanner.Scan(context.Background(), htmlframe.New(),
		scanner.Request{HTMLSource: "<p>x</p>", SearchText: ""}, 0, scanner.Hooks{})

	assert.ErrorIs(t, err, scanner.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestScan_InvalidTarget(t *testing.T) {
	s := scanner.New(scanner.Options{}, scanner.Hooks{})

	_, err := s.Scan(context.Background(), htmlframe.New(), scanner.Request{SearchText: "x"})
	assert.ErrorIs(t, err, scanner.ErrInvalidInput)

	_, err = s.Scan(context.Background(), htmlframe.New(),
		scanner.Request{URL: "https://site.test/", HTMLSource: "<p></p>", SearchText: "x"})
	assert.ErrorIs(t, err, scanner.ErrInvalidInput)
}

func TestScan_StopAfterFirstFrame(t *testing.T) {
	markup := `<iframe srcdoc="one"></iframe><iframe srcdoc="two"></iframe><iframe srcdoc="three"></iframe>`

	polls := 0
	hooks := scanner.Hooks{Stopped: func() bool {
		polls++
		return polls > 1
	}}

	result := runScan(t, scanner.New(scanner.Options{}, hooks), htmlframe.New(), markup)

	assert.Equal(t, scanner.StatusStopped, result.Status)
	assert.Equal(t, scanner.OutcomeStopped, result.Outcome())
	require.Len(t, result.Iframes, 1)
	assert.Equal(t, "Main > Iframe[1]", result.Iframes[0].Path)
	assert.Equal(t, 1, result.Summary.TotalIframes)
}

func TestScan_ContextCancelledBetweenFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hooks := scanner.Hooks{Progress: func(_ int, message string) {
		if strings.HasPrefix(message, "Scanned") {
			cancel()
		}
	}}
	markup := `<iframe srcdoc="one"></iframe><iframe srcdoc="two"></iframe>`

	result, err := scanner.New(scanner.Options{}, hooks).Scan(ctx, htmlframe.New(),
		scanner.Request{HTMLSource: markup, SearchText: "target"})

	require.NoError(t, err)
	assert.Equal(t, scanner.StatusStopped, result.Status)
	assert.Len(t, result.Iframes, 1)
}

func TestScan_CancelledBeforeLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := scanner.New(scanner.Options{}, scanner.Hooks{}).Scan(ctx, htmlframe.New(),
		scanner.Request{HTMLSource: "<p>target</p>", SearchText: "target"})

	require.NoError(t, err)
	assert.Equal(t, scanner.StatusStopped, result.Status)
	assert.Empty(t, result.Iframes)
	assert.Empty(t, result.Matches)
}

func TestScan_LoadFailure(t *testing.T) {
	result, err := scanner.New(scanner.Options{}, scanner.Hooks{}).Scan(context.Background(), htmlframe.New(),
		scanner.Request{URL: "https://unreachable.test/", SearchText: "target"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, scanner.ErrLoadFailed)
	assert.ErrorIs(t, err, htmlframe.ErrUnavailable)
}

func TestScan_NoIframes(t *testing.T) {
	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), htmlframe.New(), `<p>target</p>`)

	assert.Equal(t, scanner.OutcomeNoIframes, result.Outcome())
	assert.Empty(t, result.Iframes)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, scanner.RootPath, result.Matches[0].LocationPath)
}

func TestScan_NestedTraversal(t *testing.T) {
	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), nestedLoader(), nestedPage)

	require.Len(t, result.Iframes, 3)

	paths := []string{result.Iframes[0].Path, result.Iframes[1].Path, result.Iframes[2].Path}
	assert.Equal(t, []string{"Main > Iframe[1]", "Main > Iframe[1] > Iframe[1]", "Main > Iframe[2]"}, paths,
		"children are visited before later siblings")

	for i, rec := range result.Iframes {
		assert.Equal(t, i+1, rec.Index)
		assert.True(t, rec.Accessible, rec.Path)
		assert.Equal(t, strings.Count(rec.Path, " > ")-1, rec.Depth, rec.Path)
	}

	assert.Equal(t, "a", result.Iframes[0].ID)
	assert.Equal(t, "b", result.Iframes[1].ID)
	assert.Equal(t, "/html[1]/body[1]/iframe[1]", result.Iframes[0].XPath)
	assert.Equal(t, "/html[1]/body[1]/iframe[1]/html[1]/body[1]/iframe[1]", result.Iframes[1].XPath)
	assert.Equal(t, "/html[1]/body[1]/iframe[2]", result.Iframes[2].XPath)
	assert.Equal(t, "Title: Child | Content: child target", result.Iframes[2].Preview)

	texts := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		texts = append(texts, m.ElementText)
	}
	assert.Equal(t, []string{"target in main", "mid target", "deep target", "child target"}, texts)
}

func TestScan_Invariants(t *testing.T) {
	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), nestedLoader(), nestedPage)

	s := result.Summary
	assert.Equal(t, len(result.Iframes), s.TotalIframes)
	assert.Equal(t, s.TotalIframes, s.AccessibleIframes+s.InaccessibleIframes)
	assert.Equal(t, len(result.Matches), s.TotalMatches)

	xpaths := make(map[string]bool)
	paths := map[string]bool{scanner.RootPath: true}
	frameMatches := 0
	for _, rec := range result.Iframes {
		assert.False(t, xpaths[rec.XPath], "duplicate xpath %s", rec.XPath)
		xpaths[rec.XPath] = true
		paths[rec.Path] = true
		frameMatches += rec.MatchesFound
		if !rec.Accessible {
			assert.Zero(t, rec.MatchesFound)
		}
	}

	for _, m := range result.Matches {
		assert.True(t, paths[m.LocationPath], "match location %q is not a scanned context", m.LocationPath)
	}
	assert.Equal(t, len(result.Matches)-len(result.MatchesAt(scanner.RootPath)), frameMatches)
}

func TestScan_XPathsResolveInParentDocument(t *testing.T) {
	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), nestedLoader(), nestedPage)

	doc, err := htmlquery.Parse(strings.NewReader(nestedPage))
	require.NoError(t, err)

	for _, rec := range result.Iframes {
		if rec.Depth != 0 {
			continue
		}
		node := htmlquery.FindOne(doc, rec.XPath)
		require.NotNil(t, node, rec.XPath)
		assert.Equal(t, rec.ID, htmlquery.SelectAttr(node, "id"))
	}
}

func TestScan_MaxDepth(t *testing.T) {
	result := runScan(t, scanner.New(scanner.Options{MaxDepth: 1}, scanner.Hooks{}), nestedLoader(), nestedPage)

	require.Len(t, result.Iframes, 3)
	deep := result.Iframes[1]
	assert.Equal(t, 1, deep.Depth)
	assert.False(t, deep.Accessible)
	assert.Equal(t, "skipped: maximum frame depth reached", deep.Error)
	assert.Len(t, result.Matches, 3)
}

func TestScan_LogsAndProgress(t *testing.T) {
	var logs []string
	var percents []int
	hooks := scanner.Hooks{
		Log: func(message string, level scanner.Level, timestamp string) {
			assert.Equal(t, "12:34:56", timestamp)
			logs = append(logs, string(level)+" "+message)
		},
		Progress: func(percent int, _ string) { percents = append(percents, percent) },
		Now:      func() time.Time { return time.Date(2024, 1, 1, 12, 34, 56, 0, time.UTC) },
	}

	runScan(t, scanner.New(scanner.Options{}, hooks), nestedLoader(), nestedPage)

	assert.Contains(t, logs, "info Found 2 iframe(s) at depth 0")
	assert.Contains(t, logs, "info Found 1 iframe(s) at depth 1")
	assert.Contains(t, logs, "info Accessing iframe: Main > Iframe[1] > Iframe[1]")

	require.NotEmpty(t, percents)
	for _, p := range percents {
		assert.True(t, p >= 0 && p <= 100, p)
	}
	assert.Equal(t, 95, percents[len(percents)-1])
}

// fakes for failure modes the offline loader cannot produce

type fakeFrame struct {
	url        string
	markup     string
	children   []scanner.FrameElement
	iframesErr error
}

func (f *fakeFrame) URL(context.Context) (string, error)  { return f.url, nil }
func (f *fakeFrame) HTML(context.Context) (string, error) { return f.markup, nil }
func (f *fakeFrame) Iframes(context.Context) ([]scanner.FrameElement, error) {
	if f.iframesErr != nil {
		return nil, f.iframesErr
	}
	return f.children, nil
}

type fakeElement struct {
	attrs map[string]string
	xpath string
	enter func(ctx context.Context) (scanner.Frame, error)
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) XPath(context.Context) (string, error) { return e.xpath, nil }

func (e *fakeElement) Enter(ctx context.Context) (scanner.Frame, error) { return e.enter(ctx) }

type fakeLoader struct{ root scanner.Frame }

func (l fakeLoader) Load(context.Context, scanner.Target) (scanner.Frame, error) { return l.root, nil }

func TestScan_FrameTimeout(t *testing.T) {
	slow := &fakeElement{
		xpath: "/html[1]/body[1]/iframe[1]",
		enter: func(ctx context.Context) (scanner.Frame, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	fast := &fakeElement{
		xpath: "/html[1]/body[1]/iframe[2]",
		enter: func(context.Context) (scanner.Frame, error) {
			return &fakeFrame{url: "https://site.test/", markup: "<p>target</p>"}, nil
		},
	}
	root := &fakeFrame{url: "https://site.test/", children: []scanner.FrameElement{slow, fast}}

	s := scanner.New(scanner.Options{FrameTimeout: 20 * time.Millisecond}, scanner.Hooks{})
	result := runScan(t, s, fakeLoader{root}, "<fake>")

	require.Len(t, result.Iframes, 2)
	assert.True(t, strings.HasPrefix(result.Iframes[0].Error, "timeout:"), result.Iframes[0].Error)
	assert.True(t, result.Iframes[1].Accessible)
	assert.Equal(t, 1, result.Summary.TotalMatches)
}

func TestScan_PanicInFrameDegrades(t *testing.T) {
	broken := &fakeElement{
		xpath: "/html[1]/body[1]/iframe[1]",
		enter: func(context.Context) (scanner.Frame, error) {
			panic("frame detached")
		},
	}
	ok := &fakeElement{
		xpath: "/html[1]/body[1]/iframe[2]",
		enter: func(context.Context) (scanner.Frame, error) {
			return &fakeFrame{markup: "<p>target</p>"}, nil
		},
	}
	root := &fakeFrame{url: "https://site.test/", children: []scanner.FrameElement{broken, ok}}

	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), fakeLoader{root}, "<fake>")

	require.Len(t, result.Iframes, 2)
	assert.False(t, result.Iframes[0].Accessible)
	assert.Contains(t, result.Iframes[0].Error, "frame detached")
	assert.Equal(t, "/html[1]/body[1]/iframe[1]", result.Iframes[0].XPath)
	assert.True(t, result.Iframes[1].Accessible)
}

func TestScan_EnterErrorNotFound(t *testing.T) {
	gone := &fakeElement{
		attrs: map[string]string{"src": "/same-origin"},
		xpath: "/html[1]/body[1]/iframe[1]",
		enter: func(context.Context) (scanner.Frame, error) {
			return nil, errors.New("no content document")
		},
	}
	root := &fakeFrame{url: "https://site.test/", children: []scanner.FrameElement{gone}}

	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), fakeLoader{root}, "<fake>")

	require.Len(t, result.Iframes, 1)
	assert.Equal(t, "/same-origin", result.Iframes[0].Src)
	assert.True(t, strings.HasPrefix(result.Iframes[0].Error, "not found:"), result.Iframes[0].Error)
}

func TestScan_PanicOnCrossOriginFrame(t *testing.T) {
	isolated := &fakeElement{
		attrs: map[string]string{"src": "https://other.example/x"},
		xpath: "/html[1]/body[1]/iframe[1]",
		enter: func(context.Context) (scanner.Frame, error) {
			panic("nil ContentDocument")
		},
	}
	root := &fakeFrame{url: "https://site.test/", children: []scanner.FrameElement{isolated}}

	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), fakeLoader{root}, "<fake>")

	require.Len(t, result.Iframes, 1)
	assert.False(t, result.Iframes[0].Accessible)
	assert.True(t, strings.HasPrefix(result.Iframes[0].Error, "cross-origin:"), result.Iframes[0].Error)
	assert.Contains(t, result.Iframes[0].Error, "nil ContentDocument")
}

func TestScan_NestedDiscoveryFailureIsRecorded(t *testing.T) {
	partial := &fakeElement{
		xpath: "/html[1]/body[1]/iframe[1]",
		enter: func(context.Context) (scanner.Frame, error) {
			return &fakeFrame{
				url:        "https://site.test/",
				markup:     "<p>target</p>",
				iframesErr: context.DeadlineExceeded,
			}, nil
		},
	}
	root := &fakeFrame{url: "https://site.test/", children: []scanner.FrameElement{partial}}

	result := runScan(t, scanner.New(scanner.Options{}, scanner.Hooks{}), fakeLoader{root}, "<fake>")

	require.Len(t, result.Iframes, 1)
	rec := result.Iframes[0]
	assert.True(t, rec.Accessible, "content was read")
	assert.Equal(t, 1, rec.MatchesFound)
	assert.True(t, strings.HasPrefix(rec.Error, "nested iframes unavailable: timeout:"), rec.Error)
}
