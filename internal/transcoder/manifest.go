package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterPlaylistName is the file name of the top-level manifest.
const MasterPlaylistName = "master.m3u8"

// WriteMaster assembles the top-level playlist referencing every
// rendition playlist and writes it into jobDir. The write goes through
// a temp file and a rename, so a partial manifest never exists on disk.
func WriteMaster(jobDir string, variants []Variant) (string, error) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n", v.Bandwidth, v.Width, v.Height)
		b.WriteString(v.Playlist + "\n")
	}

	tmp := filepath.Join(jobDir, MasterPlaylistName+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	final := filepath.Join(jobDir, MasterPlaylistName)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize manifest: %w", err)
	}
	return final, nil
}
