package pathscan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}

type ErrNonUTF8Path struct {
	Path string
}

func (e *ErrNonUTF8Path) Error() string {
	return fmt.Sprintf("non-utf8 path encountered: %q", e.Path)
}

type ErrNoCommonRoot struct {
	msg string
}

func (e *ErrNoCommonRoot) Error() string {
	return e.msg
}

// Entry represents a single file system object found while analyzing
// an input path. Directories are recorded with a zero size.
type Entry struct {
	Path  string
	Name  string
	Size  int64
	IsDir bool
}

// Stats is the aggregate view of a single analyzed path. FileCount and
// TotalSize only count regular files; directory entries contribute
// nothing to either.
type Stats struct {
	FileCount int
	TotalSize int64
	Entries   []Entry
}

// Analyze walks a file or directory and collects every entry below it.
// The walk is depth first with directory listings in name order, so the
// resulting entry list is deterministic for a given tree. The root
// directory itself is not included in the entries.
func Analyze(path string) (*Stats, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrNotFound{Path: path}
		}
		return nil, err
	}

	if !utf8.ValidString(path) {
		return nil, &ErrNonUTF8Path{Path: path}
	}

	stats := Stats{}

	if !fi.IsDir() {
		stats.Entries = append(stats.Entries, Entry{
			Path: path,
			Name: filepath.Base(path),
			Size: fi.Size(),
		})
		stats.FileCount = 1
		stats.TotalSize = fi.Size()
		return &stats, nil
	}

	err = walk(path, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func walk(dir string, stats *Stats) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fpath := filepath.Join(dir, entry.Name())
		if !utf8.ValidString(fpath) {
			return &ErrNonUTF8Path{Path: fpath}
		}

		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			stats.Entries = append(stats.Entries, Entry{
				Path: fpath,
				Name: entry.Name(),
				Size: info.Size(),
			})
			stats.FileCount += 1
			stats.TotalSize += info.Size()

		} else if entry.IsDir() {
			stats.Entries = append(stats.Entries, Entry{
				Path:  fpath,
				Name:  entry.Name(),
				IsDir: true,
			})
			if err := walk(fpath, stats); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidatePaths stats every declared input path and returns one entry
// per path. Any missing path fails the whole call before anything else
// happens.
func ValidatePaths(paths []string) ([]Entry, error) {
	var validated []Entry

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &ErrNotFound{Path: path}
			}
			return nil, err
		}
		if !utf8.ValidString(path) {
			return nil, &ErrNonUTF8Path{Path: path}
		}

		size := fi.Size()
		if fi.IsDir() {
			size = 0
		}
		validated = append(validated, Entry{
			Path:  path,
			Name:  filepath.Base(path),
			Size:  size,
			IsDir: fi.IsDir(),
		})
	}

	return validated, nil
}

// CommonRoot finds the single ancestor directory that contains every
// path in the set. For a single file the result is its parent
// directory; for a single directory, the directory itself.
func CommonRoot(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", &ErrNoCommonRoot{msg: "no paths provided"}
	}

	if len(paths) == 1 {
		return effectiveDir(paths[0]), nil
	}

	root := filepath.Dir(paths[0])

	for _, path := range paths[1:] {
		dir := effectiveDir(path)

		// widen to the next ancestor until this path fits
		for !isWithin(root, dir) {
			parent := filepath.Dir(root)
			if parent == root {
				return "", &ErrNoCommonRoot{
					msg: fmt.Sprintf("no common root for paths: %v", paths),
				}
			}
			root = parent
		}
	}

	return root, nil
}

// effectiveDir maps a path to the directory it contributes to the
// common root calculation: existing directories count as themselves,
// everything else counts as its parent.
func effectiveDir(path string) string {
	fi, err := os.Stat(path)
	if err == nil && fi.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func isWithin(root, path string) bool {
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SanitizeName maps arbitrary text to a string safe to use as a
// directory name component. Characters with special meaning in paths
// become hyphens, anything else outside the safe set becomes an
// underscore, and surrounding whitespace is trimmed.
func SanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)

	return strings.TrimSpace(mapped)
}
