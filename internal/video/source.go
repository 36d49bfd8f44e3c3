package video

// Source bundles search and download into the one collaborator the pipeline
// talks to for fallback audio.
type Source struct {
	*Searcher
	*Downloader
}

func NewSource(searcher *Searcher, downloader *Downloader) *Source {
	return &Source{Searcher: searcher, Downloader: downloader}
}
