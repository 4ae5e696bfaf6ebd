// sanitize-har masks credentials in HAR fixtures before committing them.
//
// Usage:
//
//	go run ./scripts/sanitize-har -fixture=nested-site
//	go run ./scripts/sanitize-har -input=recording.har.json -output=sanitized.har.json
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grez-lucas/iframe-scanner/internal/testutil"
)

func main() {
	fixture := flag.String("fixture", "", "Fixture name under internal/browser/testdata/recordings")
	inputPath := flag.String("input", "", "Input HAR file path")
	outputPath := flag.String("output", "", "Output HAR file path (defaults to input path)")
	dryRun := flag.Bool("dry-run", false, "Show what would be redacted without modifying")
	flag.Parse()

	var inPath string
	switch {
	case *fixture != "":
		inPath = filepath.Join("internal", "browser", "testdata", "recordings", *fixture+".har.json")
	case *inputPath != "":
		inPath = *inputPath
	default:
		printUsage()
		os.Exit(1)
	}
	outPath := inPath
	if *outputPath != "" {
		outPath = *outputPath
	}

	fmt.Printf("Loading HAR file: %s\n", inPath)

	// accepts DevTools exports and the reduced layout
	har, err := testutil.LoadHAR(inPath)
	if err != nil {
		fmt.Printf("Error loading HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d entries\n", len(har.Entries))

	sanitized := testutil.SanitizeHAR(har)
	changes := diff(har, sanitized)
	fmt.Printf("Redacted %d sensitive values\n", len(changes))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes written.")
		for _, c := range changes {
			fmt.Println("  -", c)
		}
		return
	}

	if err := testutil.SaveHAR(outPath, sanitized); err != nil {
		fmt.Printf("Error saving HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sanitized HAR saved to: %s\n", outPath)
}

func printUsage() {
	fmt.Println("sanitize-har - Mask credentials in HAR fixtures before committing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  go run ./scripts/sanitize-har -fixture=nested-site")
	fmt.Println("  go run ./scripts/sanitize-har -input=recording.har.json")
	fmt.Println("  go run ./scripts/sanitize-har -input=in.har.json -output=out.har.json")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -fixture   Fixture name under internal/browser/testdata/recordings")
	fmt.Println("  -input     Input HAR file path")
	fmt.Println("  -output    Output HAR file path (defaults to input)")
	fmt.Println("  -dry-run   Show redactions without modifying file")
}

// diff describes every value SanitizeHAR changed.
func diff(original, sanitized *testutil.HARLog) []string {
	var out []string
	for i, orig := range original.Entries {
		san := sanitized.Entries[i]
		where := fmt.Sprintf("entry %d (%s %s)", i+1, orig.Request.Method, truncateURL(orig.Request.URL))

		if orig.Request.URL != san.Request.URL {
			out = append(out, where+": URL query parameters")
		}
		for j, h := range orig.Request.Headers {
			if h.Value != san.Request.Headers[j].Value {
				out = append(out, fmt.Sprintf("%s: request header %q", where, h.Name))
			}
		}
		if orig.Request.Body != san.Request.Body {
			out = append(out, where+": request body")
		}
		for j, h := range orig.Response.Headers {
			if h.Value != san.Response.Headers[j].Value {
				out = append(out, fmt.Sprintf("%s: response header %q", where, h.Name))
			}
		}
	}
	return out
}

func truncateURL(url string) string {
	if len(url) > 80 {
		return url[:77] + "..."
	}
	return url
}
