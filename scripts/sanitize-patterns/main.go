// sanitize-patterns masks credentials in HTML fixtures: query parameters in
// src and href attributes, inline tokens, cookies and e-mail addresses.
//
// Usage:
//
//	go run ./scripts/sanitize-patterns -dry-run
//	go run ./scripts/sanitize-patterns -dir=internal/dom/testdata/fixtures
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/grez-lucas/iframe-scanner/internal/redact"
)

var urlAttr = regexp.MustCompile(`(?i)\b(src|href|action)=("[^"]*"|'[^']*')`)

var sanitizePatterns = []struct {
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}{
	// Session tokens / CSRF tokens
	{
		regexp.MustCompile(`(?i)(token|csrf|session)["\s:=]+["']?[a-zA-Z0-9_-]{20,}["']?`),
		`$1="REDACTED"`,
		"Token",
	},

	// Cookies in scripts
	{
		regexp.MustCompile(`(?i)document\.cookie\s*=\s*["'][^"']+["']`),
		`document.cookie="REDACTED"`,
		"Cookie",
	},

	{
		regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		"user@example.com",
		"E-mail address",
	},
}

func main() {
	dir := flag.String("dir", filepath.Join("internal", "dom", "testdata", "fixtures"), "Directory of HTML fixtures")
	dryRun := flag.Bool("dry-run", false, "Show what would be changed without modifying files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*dir, "*.html"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No HTML files found in %s\n", *dir)
		os.Exit(1)
	}

	fmt.Printf("🔒 Sanitizing fixtures in %s\n", *dir)
	if *dryRun {
		fmt.Println("    (DRY RUN - no files will be modified)")
	}
	fmt.Println()

	for _, file := range files {
		sanitizeFile(file, *dryRun)
	}

	fmt.Println()
	fmt.Println("✅ Sanitization complete!")
	if *dryRun {
		fmt.Println("    Run without -dry-run to apply changes")
	}
}

func sanitizeFile(path string, dryRun bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ Error reading %s: %v\n", path, err)
		return
	}

	sanitized, changes := sanitize(string(content))
	filename := filepath.Base(path)

	if len(changes) == 0 {
		fmt.Printf("📄 %s: No sensitive data found\n", filename)
		return
	}

	fmt.Printf("📄 %s: Found sensitive data\n", filename)
	for _, change := range changes {
		fmt.Println(change)
	}

	if !dryRun {
		if err := os.WriteFile(path, []byte(sanitized), 0o644); err != nil {
			fmt.Printf("    ❌ Error writing %s: %v\n", path, err)
		} else {
			fmt.Println("    ✅ Sanitized and saved")
		}
	}
}

func sanitize(markup string) (string, []string) {
	var changes []string

	urls := 0
	markup = urlAttr.ReplaceAllStringFunc(markup, func(attr string) string {
		m := urlAttr.FindStringSubmatch(attr)
		quote := m[2][:1]
		value := m[2][1 : len(m[2])-1]
		masked := redact.URL(value)
		if masked == value {
			return attr
		}
		urls++
		return m[1] + "=" + quote + masked + quote
	})
	if urls > 0 {
		changes = append(changes, fmt.Sprintf("  - URL query parameters: %d matched", urls))
	}

	for _, pattern := range sanitizePatterns {
		matches := pattern.Pattern.FindAllString(markup, -1)
		if len(matches) == 0 {
			continue
		}
		markup = pattern.Pattern.ReplaceAllString(markup, pattern.Replacement)
		changes = append(changes, fmt.Sprintf("  - %s: %d matched", pattern.Description, len(matches)))
	}
	return markup, changes
}
