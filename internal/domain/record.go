package domain

// GenerationRecord is the persisted snapshot of one pipeline run. It is the
// contract between consecutive runs: the next run's cleanup consumes it to
// decide which downloaded files are safe to delete.
//
// Invariant: AllTrackIDs covers SubsonicDownloaded, YouTubeDownloaded,
// OnTheFly and the ids of AlreadyLocal.
type GenerationRecord struct {
	PlaylistName       string       `json:"playlist_name"`
	SubsonicDownloaded []string     `json:"subsonic_downloaded"`
	YouTubeDownloaded  []string     `json:"youtube_downloaded"`
	OnTheFly           []string     `json:"on_the_fly,omitempty"`
	AllTrackIDs        []string     `json:"all_tracks_ids"`
	NotFound           []TrackQuery `json:"not_found"`
	AlreadyLocal       []Candidate  `json:"already_local"`
}

// NewGenerationRecord returns an empty record for the named playlist.
func NewGenerationRecord(playlistName string) *GenerationRecord {
	return &GenerationRecord{
		PlaylistName:       playlistName,
		SubsonicDownloaded: []string{},
		YouTubeDownloaded:  []string{},
		OnTheFly:           []string{},
		AllTrackIDs:        []string{},
		NotFound:           []TrackQuery{},
		AlreadyLocal:       []Candidate{},
	}
}

// ApplyDefaults fills fields that older records may be missing. Records
// written before on-the-fly additions existed have no "on_the_fly" key; they
// must load as an empty list, not fail.
func (r *GenerationRecord) ApplyDefaults() {
	if r.SubsonicDownloaded == nil {
		r.SubsonicDownloaded = []string{}
	}
	if r.YouTubeDownloaded == nil {
		r.YouTubeDownloaded = []string{}
	}
	if r.OnTheFly == nil {
		r.OnTheFly = []string{}
	}
	if r.AllTrackIDs == nil {
		r.AllTrackIDs = []string{}
	}
	if r.NotFound == nil {
		r.NotFound = []TrackQuery{}
	}
	if r.AlreadyLocal == nil {
		r.AlreadyLocal = []Candidate{}
	}
}

// UniqueTrackIDs returns AllTrackIDs with duplicates removed, preserving
// first-occurrence order.
func (r *GenerationRecord) UniqueTrackIDs() []string {
	seen := make(map[string]struct{}, len(r.AllTrackIDs))
	unique := make([]string, 0, len(r.AllTrackIDs))
	for _, id := range r.AllTrackIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// AlreadyLocalIDs returns the ids of the candidates that were found locally.
func (r *GenerationRecord) AlreadyLocalIDs() []string {
	ids := make([]string, 0, len(r.AlreadyLocal))
	for _, c := range r.AlreadyLocal {
		ids = append(ids, c.ID)
	}
	return ids
}
