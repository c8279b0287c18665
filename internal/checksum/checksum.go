package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize is the read buffer size used when streaming content through
// the digest. It affects throughput only, never the resulting digest.
const chunkSize = 32 * 1024

// Sum streams the entire content of r through an MD5 digest and returns
// the lowercase hex encoding. MD5 is what the storage provider's entity
// tag carries for single-part objects, so local digests compare directly
// against remote metadata. The digest depends only on the byte content,
// not on how it is chunked, and handles empty input.
func Sum(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile computes the digest of a file's entire content.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Sum(f)
}
