// discover-iframes opens a page in a visible browser and prints its iframe
// tree, probing each frame for CSS selectors. The output shows which frame
// holds which content before writing a scan or a fixture for it.
//
// Usage:
//
//	go run ./scripts/discover-iframes -url=https://shop.example.com/checkout
//	go run ./scripts/discover-iframes -url=https://shop.example.com -probe='input[name=card]' -probe='form#pay'
//
// After the page loads you can click through it. Every time you press ENTER
// the current frame tree is inspected again.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/browser"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
)

// selectorProbe is a CSS selector to search for in each frame.
type selectorProbe struct {
	Name     string // Human label (e.g., "Login button")
	Selector string // CSS selector
}

// defaultProbes cover content that commonly lives in third-party frames.
var defaultProbes = []selectorProbe{
	{"Form", "form"},
	{"Password input", "input[type=password]"},
	{"Card number input", "input[autocomplete=cc-number]"},
	{"Submit button", "button[type=submit]"},
	{"Video", "video"},
	{"Cookie popup", "[class*='cookie']"},
}

type probeFlags []selectorProbe

func (p *probeFlags) String() string { return fmt.Sprint(len(*p)) }

func (p *probeFlags) Set(v string) error {
	*p = append(*p, selectorProbe{Name: v, Selector: v})
	return nil
}

func main() {
	pageURL := flag.String("url", "", "Page to inspect")
	headless := flag.Bool("headless", false, "Run the browser without a window")
	var probes probeFlags
	flag.Var(&probes, "probe", "CSS selector to look for in every frame (repeatable)")
	flag.Parse()

	if *pageURL == "" {
		fmt.Println("Usage: go run ./scripts/discover-iframes -url=https://example.com [-probe=selector]")
		os.Exit(1)
	}
	if len(probes) == 0 {
		probes = defaultProbes
	}

	fmt.Println("================================================================")
	fmt.Printf("  IFRAME DISCOVERY: %s\n", *pageURL)
	fmt.Println("================================================================")
	fmt.Println()
	fmt.Println("This tool inspects the iframe tree of the page and reports")
	fmt.Println("which frame contains which selectors.")
	fmt.Println()

	opts := browser.DefaultOptions()
	opts.Headless = *headless

	ctx := context.Background()
	session, err := browser.Launch(ctx, opts, zap.NewNop())
	if err != nil {
		fmt.Printf("Error launching browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	root, err := session.Load(ctx, scanner.Target{URL: *pageURL})
	if err != nil {
		fmt.Printf("Error loading page: %v\n", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		url, _ := root.URL(ctx)
		fmt.Println("----------------------------------------------------------------")
		fmt.Printf("  URL: %s\n\n", url)

		inspectFrame(ctx, root, "Main", 1, probes)
		fmt.Println()

		if *headless {
			break
		}
		fmt.Print("  Press ENTER to inspect again (or 'quit'): ")
		input, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(strings.ToLower(input)) == "quit" {
			break
		}
	}

	fmt.Println("================================================================")
	fmt.Println("  Discovery complete.")
	fmt.Println("================================================================")
}

// inspectFrame recursively inspects a frame for the probes and its child iframes.
func inspectFrame(ctx context.Context, frame scanner.Frame, path string, depth int, probes []selectorProbe) {
	indent := strings.Repeat("  ", depth)

	markup, err := frame.HTML(ctx)
	if err != nil {
		fmt.Printf("%s(cannot read content: %v)\n", indent, err)
		return
	}
	probeMarkup(markup, indent, probes)

	iframes, err := frame.Iframes(ctx)
	if err != nil {
		return
	}

	for i, el := range iframes {
		src, _, _ := el.Attribute(ctx, "src")
		id, _, _ := el.Attribute(ctx, "id")
		name, _, _ := el.Attribute(ctx, "name")
		xp, _ := el.XPath(ctx)

		// Build a readable identifier for this iframe
		label := fmt.Sprintf("Iframe[%d]", i+1)
		if id != "" {
			label = fmt.Sprintf("iframe#%s", id)
		} else if name != "" {
			label = fmt.Sprintf("iframe[name=%s]", name)
		}
		childPath := fmt.Sprintf("%s > %s", path, label)

		fmt.Printf("\n%sIFRAME %s  xpath=%s  src=%s\n", indent, childPath, xp, truncate(src, 80))

		child, err := el.Enter(ctx)
		if err != nil {
			fmt.Printf("%s  (cannot access frame: %v)\n", indent, err)
			continue
		}
		inspectFrame(ctx, child, childPath, depth+1, probes)
	}
}

func probeMarkup(markup, indent string, probes []selectorProbe) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		fmt.Printf("%s(cannot parse content: %v)\n", indent, err)
		return
	}

	found := 0
	for _, probe := range probes {
		sel := doc.Find(probe.Selector)
		if sel.Length() == 0 {
			continue
		}
		fmt.Printf("%sFOUND  %-30s  %s  (count=%d, tag=%s)\n",
			indent, probe.Name, probe.Selector, sel.Length(), goquery.NodeName(sel.First()))
		found++
	}
	if found == 0 {
		fmt.Printf("%s(no probed selectors found)\n", indent)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
