// Package archive packages a room's generated file set into a zip archive
// for download. Paths are stored as-is; directories are implicit in the
// entry names.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// ZipFiles serializes the file set into a zip archive. Entries are written in
// path order so archives for the same file set are byte-stable.
func ZipFiles(files []domain.RoomFile) ([]byte, error) {
	sorted := make([]domain.RoomFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range sorted {
		w, err := zw.Create(f.Path)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.Path, err)
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the attachment filename for a room's archive, using a
// short room-id prefix.
func Filename(roomID string) string {
	short := roomID
	if len(short) > 8 {
		short = short[:8]
	}
	return "vibe-room-" + short + ".zip"
}
