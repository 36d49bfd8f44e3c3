package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kkdai/youtube/v2"

	"discosync/internal/match"
)

// Downloader fetches the audio stream of a selected video into the library
// tree as <root>/<artist>/<title>.m4a, so the next library scan picks it up.
type Downloader struct {
	client youtube.Client
	root   string
}

func NewDownloader(libraryRoot string) *Downloader {
	return &Downloader{root: libraryRoot}
}

// Download saves the best audio stream of the matched video. The nominal
// query artist and title name the file, not the video's own metadata, so the
// library scan tags line up with what the playlist expects.
func (d *Downloader) Download(ctx context.Context, m *Match, queryArtist, queryTitle string) (string, error) {
	vid, err := d.client.GetVideoContext(ctx, m.ID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch video %s: %w", m.ID, err)
	}

	formats := vid.Formats.Type("audio")
	if len(formats) == 0 {
		formats = vid.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", fmt.Errorf("no audio format available for video %s", m.ID)
	}
	formats.Sort()

	stream, _, err := d.client.GetStreamContext(ctx, vid, &formats[0])
	if err != nil {
		return "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	artistDir := filepath.Join(d.root, match.SanitizeFilename(queryArtist))
	if err := os.MkdirAll(artistDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artist directory: %w", err)
	}

	outputPath := filepath.Join(artistDir, match.SanitizeFilename(queryTitle)+".m4a")
	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	written, err := io.Copy(outFile, stream)
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to save audio stream: %w", err)
	}
	if written == 0 {
		os.Remove(outputPath)
		return "", fmt.Errorf("downloaded stream was empty")
	}

	slog.Info("Downloaded video audio", "path", outputPath, "size", written, "video", m.SourceTitle)
	return outputPath, nil
}
