// capture-fixtures records a page and the documents of its frames into a
// HAR fixture that browser tests replay offline.
//
// Usage:
//
//	go run ./scripts/capture-fixtures -url=https://shop.example.com/checkout -name=checkout
//	go run ./scripts/capture-fixtures -url=https://shop.example.com/checkout -headless=false -interactive
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/browser"
	"github.com/grez-lucas/iframe-scanner/internal/scanner"
	"github.com/grez-lucas/iframe-scanner/internal/testutil"
)

func main() {
	pageURL := flag.String("url", "", "Page to record")
	name := flag.String("name", "", "Fixture name (default: host of -url)")
	outputDir := flag.String("output", filepath.Join("internal", "browser", "testdata", "recordings"), "Output directory")
	headless := flag.Bool("headless", true, "Run the browser without a window")
	interactive := flag.Bool("interactive", false, "Wait for ENTER before saving, so you can click through the page")
	raw := flag.Bool("raw", false, "Keep credentials in URLs, headers and request bodies")
	timeout := flag.Duration("timeout", 60*time.Second, "Page load timeout")
	flag.Parse()

	if *pageURL == "" {
		fmt.Println("Usage: go run ./scripts/capture-fixtures -url=https://example.com [-name=example]")
		os.Exit(1)
	}

	fixture := *name
	if fixture == "" {
		fixture = fixtureName(*pageURL)
	}
	outPath := filepath.Join(*outputDir, fixture+".har.json")

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║           IFRAME FIXTURE CAPTURE TOOL                          ║")
	fmt.Println("╠════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  URL: %-55s  ║\n", truncate(*pageURL, 55))
	fmt.Printf("║  Output: %-52s  ║\n", truncate(outPath, 52))
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	recorder := testutil.NewRecorder()
	opts := browser.DefaultOptions()
	opts.Headless = *headless
	opts.NavigationTimeout = *timeout
	opts.Hijack = recorder.Middleware()

	ctx := context.Background()
	session, err := browser.Launch(ctx, opts, zap.NewNop())
	if err != nil {
		fmt.Printf("❌ Error launching browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	root, err := session.Load(ctx, scanner.Target{URL: *pageURL})
	if err != nil {
		fmt.Printf("❌ Error loading page: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		fmt.Println("📋 The page is loaded. Navigate into the frames you need recorded,")
		fmt.Print("   then press ENTER to save: ")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}

	if frames, err := root.Iframes(ctx); err == nil {
		fmt.Printf("🔲 %d top-level iframe(s) on the page\n", len(frames))
	}

	har := recorder.HAR()
	if !*raw {
		har = testutil.SanitizeHAR(har)
	}
	if len(har.Entries) == 0 {
		fmt.Println("⚠️  No documents were recorded")
		os.Exit(1)
	}

	if err := testutil.SaveHAR(outPath, har); err != nil {
		fmt.Printf("❌ Error saving HAR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Saved %d document(s) to %s\n", len(har.Entries), outPath)
	for _, e := range har.Entries {
		fmt.Printf("   %d %s\n", e.Response.Status, e.Request.URL)
	}
	if *raw {
		fmt.Println()
		fmt.Println("⚠️  IMPORTANT: -raw keeps credentials. Do not commit this file as is.")
	}
}

func fixtureName(rawURL string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	if i := strings.IndexAny(name, "/?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.NewReplacer(":", "-", ".", "-").Replace(name)
	if name == "" {
		return "recording"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
