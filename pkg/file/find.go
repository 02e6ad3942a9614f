package file

import (
	"os"
	"path/filepath"
	"strings"
)

var subtitleExts = []string{".srt"}

// FindSiblingSubtitle looks for a subtitle file next to a media file.
// It prefers an exact base-name match ("movie.srt" for "movie.mkv") and
// falls back to any subtitle sharing the base-name prefix ("movie.eng.srt").
// Returns "" when nothing matches.
func FindSiblingSubtitle(mediaPath string) string {
	dir := filepath.Dir(mediaPath)
	base := BaseName(mediaPath)

	for _, ext := range subtitleExts {
		exact := filepath.Join(dir, base+ext)
		if _, err := os.Stat(exact); err == nil {
			return exact
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, ext := range subtitleExts {
			if strings.HasPrefix(name, base+".") && strings.HasSuffix(strings.ToLower(name), ext) {
				return filepath.Join(dir, name)
			}
		}
	}
	return ""
}

// BaseName extracts the base name of a file without any extensions.
// e.g. "movie.mkv" -> "movie", "movie.eng.srt" -> "movie".
func BaseName(path string) string {
	fileName := filepath.Base(path)
	if !strings.Contains(fileName, ".") {
		return fileName
	}
	return strings.Split(fileName, ".")[0]
}
