// Package files maps a track's nominal storage path to the real file on
// disk, tolerating the filename drift that transcoders and taggers
// introduce, and removes files during cleanup.
package files

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"discosync/internal/match"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".m4a":  {},
	".wav":  {},
	".opus": {},
	".ogg":  {},
}

// trackPrefixRegex matches leading track numbers like "01 - " or "3.".
var trackPrefixRegex = regexp.MustCompile(`^\d+\s*[-.]\s*`)

const fuzzyFilenameFloor = 80

// Locate resolves a track's nominal relative path to an actual file under
// the library root. The exact path is tried first; failing that, the
// containing directory (or its parent when that is missing too) is scanned
// for an audio file whose name matches the title after track-number and
// punctuation stripping. The first matching file wins.
func Locate(nominalRelativePath, title, libraryRoot string) (string, bool) {
	fullPath := filepath.Join(libraryRoot, nominalRelativePath)
	if _, err := os.Stat(fullPath); err == nil {
		return fullPath, true
	}

	dir := filepath.Dir(fullPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		dir = filepath.Dir(dir)
		entries, err = os.ReadDir(dir)
		if err != nil {
			return "", false
		}
	}

	target := strings.ToLower(match.StripPunctuation(title))
	if target == "" {
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := audioExtensions[ext]; !ok {
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		stem = trackPrefixRegex.ReplaceAllString(stem, "")
		cleaned := strings.ToLower(match.StripPunctuation(stem))

		if filenameMatches(cleaned, target) {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

// filenameMatches applies progressively looser comparisons as the target
// gets longer: very short titles only get the token-set ratio, short ones
// must match exactly, and anything longer may also match by containment.
func filenameMatches(cleaned, target string) bool {
	length := utf8.RuneCountInString(target)
	switch {
	case length > 4:
		return cleaned == target || strings.Contains(cleaned, target)
	case length > 3:
		return cleaned == target
	default:
		return match.TokenSetRatio(cleaned, target) >= fuzzyFilenameFloor
	}
}

// Delete removes the file at path. Missing files are not an error: cleanup
// treats an already-gone file as done.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
