package model

// SkippedLink records one candidate that failed to decode. The link is
// truncated to a short prefix so the report stays readable but still lets
// the user locate the offending line.
type SkippedLink struct {
	Source string `json:"source"`
	Link   string `json:"link"`
	Reason string `json:"reason"` // error code from the taxonomy
}

// SourceReport is the per-source outcome of a generation run.
//
// Candidates counts raw lines that looked like node links before decoding;
// Decoded counts the ones that produced a CanonicalNode. Both are kept
// because the source material is ambiguous about which one the user-visible
// "total nodes found" statistic should mean.
type SourceReport struct {
	Source     string        `json:"source"`
	FetchError string        `json:"fetch_error,omitempty"` // code; empty on success
	Candidates int           `json:"candidates"`
	Decoded    int           `json:"decoded"`
	Skipped    []SkippedLink `json:"skipped,omitempty"`
}

// Report aggregates every per-source and per-link outcome of one run. It is
// handed back to the caller together with the generated config so skips can
// be diagnosed without re-running with verbose logging.
type Report struct {
	Sources         []SourceReport `json:"sources"`
	TotalCandidates int            `json:"total_candidates"`
	TotalDecoded    int            `json:"total_decoded"`
	TotalMerged     int            `json:"total_merged"`
}

func (r *Report) Add(sr SourceReport) {
	r.Sources = append(r.Sources, sr)
	r.TotalCandidates += sr.Candidates
	r.TotalDecoded += sr.Decoded
}
