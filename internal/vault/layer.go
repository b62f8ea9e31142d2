package vault

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"

	"lukechampine.com/blake3"
)

// layerChecksum fingerprints the structure of a vault layer: every
// file's relative path and size, in walk order. It deliberately does
// not read file contents; content integrity is the manifest's job.
// WalkDir visits entries in lexical order so the result is stable.
func layerChecksum(dir string) (string, error) {
	hasher := blake3.New(32, nil)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		fmt.Fprintf(hasher, "%s:%d\n", filepath.ToSlash(rel), info.Size())
		return nil
	})
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
