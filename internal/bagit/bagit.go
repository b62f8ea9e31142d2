// Package bagit builds and validates BagIt 1.0 bags: fixed-layout,
// self-verifying directories used to package content for long-term
// archival. The on-disk contract is the four fixed names below; the
// payload lives under data/ and every payload file is recorded in the
// sha256 manifest.
package bagit

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/studio1767/bagvault/internal/checksum"
	"github.com/studio1767/bagvault/internal/pathscan"
)

const (
	DeclarationName = "bagit.txt"
	PayloadDirName  = "data"
	ManifestName    = "manifest-sha256.txt"
	InfoName        = "bag-info.txt"

	versionLine  = "BagIt-Version: 1.0"
	encodingLine = "Tag-File-Character-Encoding: UTF-8"
)

// Bag identifies a bag by its root directory and the four fixed
// sub-paths. A bag has no existence beyond the directory on disk; it
// is re-derivable from the root path alone.
type Bag struct {
	Root            string
	DataDir         string
	ManifestPath    string
	InfoPath        string
	DeclarationPath string
}

// Open derives the bag paths without touching the file system. Use it
// to validate an existing bag.
func Open(root string) *Bag {
	return &Bag{
		Root:            root,
		DataDir:         filepath.Join(root, PayloadDirName),
		ManifestPath:    filepath.Join(root, ManifestName),
		InfoPath:        filepath.Join(root, InfoName),
		DeclarationPath: filepath.Join(root, DeclarationName),
	}
}

// Create makes the bag root and payload directory. It is idempotent:
// creating over an existing bag directory succeeds.
func Create(root string) (*Bag, error) {
	bag := Open(root)

	if err := os.MkdirAll(bag.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bag root: %w", err)
	}
	if err := os.MkdirAll(bag.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}

	return bag, nil
}

// WriteDeclaration writes the two-line format declaration. The lines
// are a byte-exact, version-pinned contract checked by every consumer.
func (b *Bag) WriteDeclaration() error {
	content := versionLine + "\n" + encodingLine + "\n"
	return os.WriteFile(b.DeclarationPath, []byte(content), 0644)
}

// PayloadEntry records one payload file as it was copied into the bag.
// RelPath is relative to the bag root, uses forward slashes and
// includes the payload directory prefix, matching the manifest format.
type PayloadEntry struct {
	RelPath string
	SHA256  string
	Size    int64
}

// PayloadSummary accumulates payload totals and per-file hashes during
// the copy step, so the manifest and oxum don't need a second pass
// over the data. ScanPayload produces the same summary by re-reading
// the payload from disk.
type PayloadSummary struct {
	TotalBytes int64
	FileCount  int
	Entries    []PayloadEntry
}

// Oxum is the compact "<total_bytes>.<file_count>" payload summary.
func (s *PayloadSummary) Oxum() string {
	return fmt.Sprintf("%d.%d", s.TotalBytes, s.FileCount)
}

// AddPayload copies the analyzed entries into the payload directory,
// recreating each path relative to the source root. Every file is
// hashed while it is copied, one open-stream-close per file. Entries
// that resolve to the same destination are copied and counted once, so
// overlapping source lists cannot inflate the summary. A copy failure
// aborts immediately and leaves the partial payload in place; nothing
// is cleaned up.
func (b *Bag) AddPayload(entries []pathscan.Entry, sourceRoot string) (*PayloadSummary, error) {
	summary := PayloadSummary{}
	seen := make(map[string]bool)

	for _, entry := range entries {
		rel, err := filepath.Rel(sourceRoot, entry.Path)
		if err != nil {
			return nil, fmt.Errorf("path %s is not under source root %s: %w", entry.Path, sourceRoot, err)
		}
		if seen[rel] {
			continue
		}
		seen[rel] = true

		dest := filepath.Join(b.DataDir, rel)

		if entry.IsDir {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, fmt.Errorf("failed to create payload directory %s: %w", rel, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("failed to create payload directory for %s: %w", rel, err)
		}

		size, sum, err := copyFile(entry.Path, dest)
		if err != nil {
			return nil, err
		}

		summary.TotalBytes += size
		summary.FileCount += 1
		summary.Entries = append(summary.Entries, PayloadEntry{
			RelPath: path.Join(PayloadDirName, filepath.ToSlash(rel)),
			SHA256:  sum,
			Size:    size,
		})
	}

	return &summary, nil
}

// copyFile copies src to dest and returns the byte count and sha256 of
// the content, computed from the same read.
func copyFile(src, dest string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	sw := checksum.NewSHA256Writer(out)
	size, err := io.Copy(sw, in)
	if err != nil {
		return 0, "", fmt.Errorf("failed to copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to flush %s: %w", dest, err)
	}

	return size, sw.SHA256(), nil
}
