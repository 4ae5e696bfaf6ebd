// Package scanner discovers iframes in a loaded page, searches the main
// document and every accessible frame for a text string, and reports where
// the matches are.
package scanner

// RootPath is the location path of the main document. It is a pseudo-context:
// it never appears as an IframeRecord.
const RootPath = "Main"

// Status is the terminal state of a scan that did not fail.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

// Outcome distinguishes the user-visible endings of a scan that returned a
// result. A failed scan returns an error instead.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoIframes Outcome = "no_iframes"
	OutcomeStopped   Outcome = "stopped"
)

// IframeRecord describes one discovered iframe, accessible or not.
type IframeRecord struct {
	Index        int    `json:"index"`
	Path         string `json:"path"`
	XPath        string `json:"xpath"`
	Depth        int    `json:"depth"`
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Src          string `json:"src,omitempty"`
	Title        string `json:"title,omitempty"`
	Class        string `json:"class,omitempty"`
	Accessible   bool   `json:"accessible"`
	Error        string `json:"error,omitempty"`
	Preview      string `json:"preview,omitempty"`
	MatchesFound int    `json:"matches_found"`
}

// MatchRecord is one element whose text (or attribute) satisfied the active
// match predicate.
type MatchRecord struct {
	LocationPath string    `json:"location_path"`
	ElementTag   string    `json:"element_tag"`
	ElementText  string    `json:"element_text"`
	ElementXPath string    `json:"element_xpath"`
	MatchedBy    MatchMode `json:"matched_by"`
	FoundText    string    `json:"found_text"`
}

// ScanSummary holds the aggregate counts of a scan.
type ScanSummary struct {
	TotalIframes        int    `json:"total_iframes"`
	AccessibleIframes   int    `json:"accessible_iframes"`
	InaccessibleIframes int    `json:"inaccessible_iframes"`
	TotalMatches        int    `json:"total_matches"`
	SearchText          string `json:"search_text"`
}

// Result is the output of one scan. It is created fresh per scan and must be
// treated as read-only once returned.
type Result struct {
	Status  Status         `json:"status"`
	Summary ScanSummary    `json:"summary"`
	Iframes []IframeRecord `json:"iframes"`
	Matches []MatchRecord  `json:"matches"`
}

// Outcome reports which terminal outcome the result represents.
func (r *Result) Outcome() Outcome {
	switch {
	case r.Status == StatusStopped:
		return OutcomeStopped
	case r.Summary.TotalIframes == 0:
		return OutcomeNoIframes
	default:
		return OutcomeCompleted
	}
}

// MatchesAt returns the matches recorded for one location path.
func (r *Result) MatchesAt(path string) []MatchRecord {
	var out []MatchRecord
	for _, m := range r.Matches {
		if m.LocationPath == path {
			out = append(out, m)
		}
	}
	return out
}
