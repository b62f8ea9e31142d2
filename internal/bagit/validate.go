package bagit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/studio1767/bagvault/internal/checksum"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "unknown"
}

// Issue is a single validation finding. File is set when the finding
// concerns one payload entry, empty for structural findings.
type Issue struct {
	Severity Severity
	Message  string
	File     string
}

// HasErrors reports whether any issue in the list has error severity.
// An issue list without errors means the bag is valid.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the bag's structural completeness and re-derives the
// hash of every payload file named in the manifest. Checks accumulate
// rather than short-circuit so a caller sees every problem in one
// pass; the bag is never modified. The returned error is reserved for
// read failures on the bag itself, not for discrepancies.
func (b *Bag) Validate() ([]Issue, error) {
	var issues []Issue

	haveDeclaration := exists(b.DeclarationPath)
	haveManifest := exists(b.ManifestPath)

	if !haveDeclaration {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("missing %s file", DeclarationName),
		})
	}
	if !haveManifest {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("missing %s file", ManifestName),
		})
	}
	if !exists(b.DataDir) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("missing %s directory", PayloadDirName),
		})
	}

	if haveDeclaration {
		declIssues, err := b.checkDeclaration()
		if err != nil {
			return issues, err
		}
		issues = append(issues, declIssues...)
	}

	if haveManifest {
		manifestIssues, err := b.checkManifest()
		if err != nil {
			return issues, err
		}
		issues = append(issues, manifestIssues...)
	}

	return issues, nil
}

func (b *Bag) checkDeclaration() ([]Issue, error) {
	content, err := os.ReadFile(b.DeclarationPath)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	if !strings.Contains(string(content), versionLine) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("invalid BagIt version declaration in %s", DeclarationName),
		})
	}
	if !strings.Contains(string(content), encodingLine) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("invalid character encoding declaration in %s", DeclarationName),
		})
	}
	return issues, nil
}

func (b *Bag) checkManifest() ([]Issue, error) {
	in, err := os.Open(b.ManifestPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var issues []Issue

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		// split on the first double-space run only: the path part may
		// legitimately contain further separators
		recorded, relPath, ok := strings.Cut(line, manifestSeparator)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("malformed manifest line: %s", line),
			})
			continue
		}

		fpath := filepath.Join(b.Root, filepath.FromSlash(relPath))
		if !exists(fpath) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("payload file missing: %s", relPath),
				File:     relPath,
			})
			continue
		}

		actual, err := checksum.FileSHA256(fpath)
		if err != nil {
			return issues, err
		}
		if actual != recorded {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("checksum mismatch: %s", relPath),
				File:     relPath,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return issues, err
	}

	return issues, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
