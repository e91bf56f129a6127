package format

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// ArtifactRow is one row of `pier ls` output: a published artifact's hash,
// its total size on disk, and the count of files it contains.
type ArtifactRow struct {
	Hash      string
	Size      string
	FileCount int
	Modified  string
}

// DirSize walks dir and returns the total size of every regular file under
// it, the count of those files, and the most recent modification time seen
// (as a unix timestamp, for rendering via Unix) — for populating
// ArtifactRow's Size, FileCount, and Modified fields.
func DirSize(dir string) (int64, int, int64, error) {
	var total int64
	var count int
	var latest int64
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
			count++
			if mtime := info.ModTime().Unix(); mtime > latest {
				latest = mtime
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return total, count, latest, nil
}

// HumanSize renders a byte count the way `pier ls` displays it, e.g. "4.2 kB".
func HumanSize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}
