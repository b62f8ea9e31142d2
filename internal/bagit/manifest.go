package bagit

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/studio1767/bagvault/internal/checksum"
)

// manifestSeparator divides the hash from the path on each manifest
// line. Two spaces, fixed. The validator splits on the first
// occurrence, so a relative path containing a double space would be
// ambiguous.
const manifestSeparator = "  "

// WriteManifest writes one line per payload file, sorted
// lexicographically by the full line text. For a given payload set the
// manifest is byte-identical no matter what order the files were
// copied in.
func (b *Bag) WriteManifest(summary *PayloadSummary) error {
	lines := make([]string, 0, len(summary.Entries))
	for _, entry := range summary.Entries {
		lines = append(lines, entry.SHA256+manifestSeparator+entry.RelPath)
	}
	sort.Strings(lines)

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return os.WriteFile(b.ManifestPath, []byte(sb.String()), 0644)
}

// ScanPayload re-derives the payload summary from disk: it walks the
// payload directory and re-hashes every regular file. This is the
// explicit verification mode; after AddPayload the accumulated summary
// already holds the same information without the extra pass.
func (b *Bag) ScanPayload() (*PayloadSummary, error) {
	summary := PayloadSummary{}

	err := b.walkPayload(b.DataDir, func(fpath string, size int64) error {
		rel, err := filepath.Rel(b.Root, fpath)
		if err != nil {
			return err
		}

		sum, err := checksum.FileSHA256(fpath)
		if err != nil {
			return err
		}

		summary.TotalBytes += size
		summary.FileCount += 1
		summary.Entries = append(summary.Entries, PayloadEntry{
			RelPath: path.Clean(filepath.ToSlash(rel)),
			SHA256:  sum,
			Size:    size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// PayloadOxum re-walks the payload directory and counts bytes and
// files without hashing anything. Cheap structural cross-check against
// the accumulated summary.
func (b *Bag) PayloadOxum() (string, error) {
	var bytes int64
	var files int

	err := b.walkPayload(b.DataDir, func(fpath string, size int64) error {
		bytes += size
		files += 1
		return nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d.%d", bytes, files), nil
}

// walkPayload visits every regular file below dir in name order,
// calling visit with the path and size.
func (b *Bag) walkPayload(dir string, visit func(fpath string, size int64) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fpath := filepath.Join(dir, entry.Name())

		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			if err := visit(fpath, info.Size()); err != nil {
				return err
			}
		} else if entry.IsDir() {
			if err := b.walkPayload(fpath, visit); err != nil {
				return err
			}
		}
	}

	return nil
}
