package domain

// TrackQuery is the nominal identity of a recommended track, as it arrives
// from the recommendation feed. Album is carried through for metadata but is
// never used for matching.
type TrackQuery struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album,omitempty"`
}

// Candidate is a scored search result for a TrackQuery. The ID is opaque and
// unique within one search provider.
type Candidate struct {
	ID         string  `json:"id"`
	Artist     string  `json:"artist"`
	Title      string  `json:"title"`
	IsLocal    bool    `json:"is_local"`
	Similarity float64 `json:"similarity"`
}

// Outcome classifies the result of resolving one TrackQuery.
type Outcome string

const (
	// OutcomeLocal means a confident match already present in the library.
	OutcomeLocal Outcome = "local"
	// OutcomeRemote means a confident match exists but must be fetched.
	OutcomeRemote Outcome = "remote"
	// OutcomeUnresolved means no candidate cleared the confidence bar.
	OutcomeUnresolved Outcome = "unresolved"
)

// Decision is the per-track result of the aggregate/select stage. Candidate
// is nil when Outcome is OutcomeUnresolved.
type Decision struct {
	Outcome   Outcome
	Query     TrackQuery
	Candidate *Candidate
}
