package vault

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"filippo.io/age"
)

type ErrPassphraseEmpty struct {
	operation string
}

func (e *ErrPassphraseEmpty) Error() string {
	return fmt.Sprintf("operation %s requires a passphrase", e.operation)
}

// Export writes a bag as a passphrase-encrypted archive suitable for
// hand-off: tar, then gzip, then age scrypt encryption. The bag
// directory itself is untouched. Returns the number of bytes written
// to the destination file.
func Export(bagRoot, dest, passphrase string) (int64, error) {
	if passphrase == "" {
		return 0, &ErrPassphraseEmpty{
			operation: "export",
		}
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	counter := &writeCounter{out: out}

	ewriter, err := age.Encrypt(counter, recipient)
	if err != nil {
		return 0, err
	}

	gzwriter := gzip.NewWriter(ewriter)
	twriter := tar.NewWriter(gzwriter)

	err = writeBagArchive(twriter, bagRoot)

	// close innermost first so each layer flushes into the next
	if cerr := twriter.Close(); err == nil {
		err = cerr
	}
	if cerr := gzwriter.Close(); err == nil {
		err = cerr
	}
	if cerr := ewriter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	return counter.bytes, nil
}

// writeCounter tracks how many encrypted bytes actually reach the
// destination, after compression and encryption have done their work.
type writeCounter struct {
	out   io.Writer
	bytes int64
}

func (wc *writeCounter) Write(p []byte) (int, error) {
	size, err := wc.out.Write(p)
	wc.bytes += int64(size)
	return size, err
}

// writeBagArchive walks the bag and writes each entry into the tar
// stream, prefixed with the bag's base name so extraction recreates
// the bag directory.
func writeBagArchive(tw *tar.Writer, bagRoot string) error {
	base := filepath.Base(bagRoot)

	return filepath.WalkDir(bagRoot, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(bagRoot, fpath)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = path.Join(base, filepath.ToSlash(rel))

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := os.Open(fpath)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}
