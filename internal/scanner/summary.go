package scanner

// Summarize aggregates the completed record sequences. It performs no I/O.
func Summarize(searchText string, iframes []IframeRecord, matches []MatchRecord) ScanSummary {
	accessible := 0
	for _, rec := range iframes {
		if rec.Accessible {
			accessible++
		}
	}

	return ScanSummary{
		TotalIframes:        len(iframes),
		AccessibleIframes:   accessible,
		InaccessibleIframes: len(iframes) - accessible,
		TotalMatches:        len(matches),
		SearchText:          searchText,
	}
}

// BuildResult assembles a Result. Nil sequences become empty ones so the
// serialized form always carries arrays.
func BuildResult(status Status, searchText string, iframes []IframeRecord, matches []MatchRecord) *Result {
	if iframes == nil {
		iframes = []IframeRecord{}
	}
	if matches == nil {
		matches = []MatchRecord{}
	}
	return &Result{
		Status:  status,
		Summary: Summarize(searchText, iframes, matches),
		Iframes: iframes,
		Matches: matches,
	}
}
