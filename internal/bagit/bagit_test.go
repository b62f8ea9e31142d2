package bagit_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/bagvault/internal/bagit"
	"github.com/studio1767/bagvault/internal/pathscan"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte(data), 0644)
	require.NoError(t, err)
}

func makeSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "some notes\n")
	writeFile(t, filepath.Join(dir, "art", "cover.png"), "not really a png")
	writeFile(t, filepath.Join(dir, "art", "drafts", "v1.png"), "first draft")
	return dir
}

// buildBag runs the five construction steps over the source tree.
func buildBag(t *testing.T, source, root string) (*bagit.Bag, *bagit.PayloadSummary) {
	t.Helper()

	stats, err := pathscan.Analyze(source)
	require.NoError(t, err)

	bag, err := bagit.Create(root)
	require.NoError(t, err)

	err = bag.WriteDeclaration()
	require.NoError(t, err)

	summary, err := bag.AddPayload(stats.Entries, source)
	require.NoError(t, err)

	err = bag.WriteManifest(summary)
	require.NoError(t, err)

	size, err := bag.Size()
	require.NoError(t, err)

	err = bag.WriteInfo(&bagit.Info{
		ExternalDescription:      "test project",
		InternalSenderIdentifier: "test-0001",
		BaggingDate:              time.Now(),
		BagSize:                  bagit.FormatBytes(size),
		PayloadOxum:              summary.Oxum(),
	})
	require.NoError(t, err)

	return bag, summary
}

func TestBuildThenValidate(t *testing.T) {
	source := makeSource(t)
	bag, summary := buildBag(t, source, filepath.Join(t.TempDir(), "bag"))

	require.Equal(t, 3, summary.FileCount)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.False(t, bagit.HasErrors(issues))
	require.Empty(t, issues)
}

func TestDeclarationContent(t *testing.T) {
	bag, _ := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	content, err := os.ReadFile(bag.DeclarationPath)
	require.NoError(t, err)
	require.Equal(t, "BagIt-Version: 1.0\nTag-File-Character-Encoding: UTF-8\n", string(content))
}

func TestManifestFormat(t *testing.T) {
	bag, summary := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	content, err := os.ReadFile(bag.ManifestPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, summary.FileCount)
	require.True(t, sort.StringsAreSorted(lines))

	for _, line := range lines {
		hash, rel, ok := strings.Cut(line, "  ")
		require.True(t, ok)
		require.Len(t, hash, 64)
		require.True(t, strings.HasPrefix(rel, "data/"))
	}
}

func TestTamperDetection(t *testing.T) {
	bag, _ := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	// flip content without changing the size
	target := filepath.Join(bag.DataDir, "art", "cover.png")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	data[0] ^= 0xff
	err = os.WriteFile(target, data, 0644)
	require.NoError(t, err)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, bagit.SeverityError, issues[0].Severity)
	require.Equal(t, "data/art/cover.png", issues[0].File)
	require.Contains(t, issues[0].Message, "checksum mismatch")
}

func TestDeletionDetection(t *testing.T) {
	bag, _ := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	err := os.Remove(filepath.Join(bag.DataDir, "notes.txt"))
	require.NoError(t, err)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "data/notes.txt", issues[0].File)
	require.Contains(t, issues[0].Message, "missing")
}

func TestValidateMissingEverything(t *testing.T) {
	bag := bagit.Open(filepath.Join(t.TempDir(), "not-a-bag"))

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.Len(t, issues, 3)
	require.True(t, bagit.HasErrors(issues))
}

func TestValidateBadDeclaration(t *testing.T) {
	bag, _ := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	err := os.WriteFile(bag.DeclarationPath, []byte("BagIt-Version: 0.97\n"), 0644)
	require.NoError(t, err)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Contains(t, issues[0].Message, "version")
	require.Contains(t, issues[1].Message, "encoding")
}

func TestValidateMalformedManifestLine(t *testing.T) {
	bag, _ := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	mf, err := os.OpenFile(bag.ManifestPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = mf.WriteString("deadbeef data/missing-separator\n")
	require.NoError(t, err)
	require.NoError(t, mf.Close())

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, "malformed manifest line")
}

func TestEmptyInput(t *testing.T) {
	source := t.TempDir()
	bag, summary := buildBag(t, source, filepath.Join(t.TempDir(), "bag"))

	require.Equal(t, "0.0", summary.Oxum())

	content, err := os.ReadFile(bag.ManifestPath)
	require.NoError(t, err)
	require.Empty(t, content)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.False(t, bagit.HasErrors(issues))
}

func TestDeterministicBuilds(t *testing.T) {
	source := makeSource(t)

	bag1, summary1 := buildBag(t, source, filepath.Join(t.TempDir(), "bag1"))
	bag2, summary2 := buildBag(t, source, filepath.Join(t.TempDir(), "bag2"))

	manifest1, err := os.ReadFile(bag1.ManifestPath)
	require.NoError(t, err)
	manifest2, err := os.ReadFile(bag2.ManifestPath)
	require.NoError(t, err)

	require.Equal(t, manifest1, manifest2)
	require.Equal(t, summary1.Oxum(), summary2.Oxum())

	size1, err := bag1.Size()
	require.NoError(t, err)
	size2, err := bag2.Size()
	require.NoError(t, err)
	require.Equal(t, size1, size2)
}

func TestScanPayloadMatchesAccumulated(t *testing.T) {
	bag, summary := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	scanned, err := bag.ScanPayload()
	require.NoError(t, err)

	require.Equal(t, summary.TotalBytes, scanned.TotalBytes)
	require.Equal(t, summary.FileCount, scanned.FileCount)
	require.Equal(t, summary.Oxum(), scanned.Oxum())

	sortEntries := func(entries []bagit.PayloadEntry) {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].RelPath < entries[j].RelPath
		})
	}
	sortEntries(summary.Entries)
	sortEntries(scanned.Entries)
	require.Equal(t, summary.Entries, scanned.Entries)
}

func TestPayloadOxumRecompute(t *testing.T) {
	bag, summary := buildBag(t, makeSource(t), filepath.Join(t.TempDir(), "bag"))

	oxum, err := bag.PayloadOxum()
	require.NoError(t, err)
	require.Equal(t, summary.Oxum(), oxum)
}

func TestAddPayloadOverlappingSources(t *testing.T) {
	source := makeSource(t)

	// a source list naming both a directory and a file inside it
	// yields the file entry twice
	stats, err := pathscan.Analyze(source)
	require.NoError(t, err)
	dup, err := pathscan.Analyze(filepath.Join(source, "notes.txt"))
	require.NoError(t, err)
	entries := append(stats.Entries, dup.Entries...)

	bag, err := bagit.Create(filepath.Join(t.TempDir(), "bag"))
	require.NoError(t, err)
	err = bag.WriteDeclaration()
	require.NoError(t, err)

	summary, err := bag.AddPayload(entries, source)
	require.NoError(t, err)
	require.Equal(t, 3, summary.FileCount)
	require.Len(t, summary.Entries, 3)

	err = bag.WriteManifest(summary)
	require.NoError(t, err)

	// the accumulated summary agrees with a re-walk of the payload
	scanned, err := bag.ScanPayload()
	require.NoError(t, err)
	require.Equal(t, scanned.Oxum(), summary.Oxum())

	content, err := os.ReadFile(bag.ManifestPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)

	issues, err := bag.Validate()
	require.NoError(t, err)
	require.False(t, bagit.HasErrors(issues))
}
