package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// chunkSize is the read buffer used when streaming file content
// through the digests. Memory use per file is bounded by this
// regardless of file size.
const chunkSize = 8192

// Sums holds the digests computed over a single read of a file's
// content, as lowercase hexadecimal strings.
type Sums struct {
	Blake3 string
	SHA256 string
	MD5    string
}

// File streams the file once and feeds every chunk to all three
// digests in the same pass, so the content is only read from disk one
// time no matter how many checksums are needed.
func File(path string) (*Sums, error) {
	b3 := blake3.New(32, nil)
	sha := sha256.New()
	md := md5.New()

	err := stream(path, io.MultiWriter(b3, sha, md))
	if err != nil {
		return nil, err
	}

	return &Sums{
		Blake3: hex.EncodeToString(b3.Sum(nil)),
		SHA256: hex.EncodeToString(sha.Sum(nil)),
		MD5:    hex.EncodeToString(md.Sum(nil)),
	}, nil
}

// FileSHA256 computes only the sha256 digest, for callers that don't
// need the other two. Same chunking as File.
func FileSHA256(path string) (string, error) {
	return single(path, sha256.New())
}

// FileMD5 computes only the md5 digest, kept for interchange with
// older systems that still expect it.
func FileMD5(path string) (string, error) {
	return single(path, md5.New())
}

// FileBlake3 computes only the blake3 digest.
func FileBlake3(path string) (string, error) {
	return single(path, blake3.New(32, nil))
}

func single(path string, h hash.Hash) (string, error) {
	err := stream(path, h)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stream(path string, w io.Writer) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	buffer := make([]byte, chunkSize)
	for {
		n, rerr := in.Read(buffer)
		if n > 0 {
			if _, werr := w.Write(buffer[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// Writer wraps an output stream and computes the sha256 digest of
// everything written through it. The bag builder uses this to hash
// payload files during the copy itself instead of re-reading them.
type Writer struct {
	io.Writer
	sha hash.Hash
}

func NewSHA256Writer(w io.Writer) *Writer {
	sw := Writer{
		sha: sha256.New(),
	}
	sw.Writer = io.MultiWriter(w, sw.sha)
	return &sw
}

// SHA256 returns the digest of the bytes written so far.
func (w *Writer) SHA256() string {
	return hex.EncodeToString(w.sha.Sum(nil))
}
