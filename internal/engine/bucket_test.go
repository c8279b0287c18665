package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/labtools/expsync/internal/checksum"
	"github.com/labtools/expsync/internal/storage"
)

// fakeBucket is an in-memory Bucket. ETags are the MD5 of the stored
// content unless overridden; corrupt maps a key to different bytes that
// Download delivers instead, simulating transfer corruption.
type fakeBucket struct {
	objects   map[string][]byte
	etags     map[string]string
	corrupt   map[string][]byte
	downloads map[string]int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{
		objects:   make(map[string][]byte),
		etags:     make(map[string]string),
		corrupt:   make(map[string][]byte),
		downloads: make(map[string]int),
	}
}

func (f *fakeBucket) put(key, content string) {
	f.objects[key] = []byte(content)
}

func (f *fakeBucket) List(prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeBucket) Stat(key string) (storage.ObjectInfo, error) {
	content, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("stat %s: not found", key)
	}
	etag := f.etags[key]
	if etag == "" {
		sum, err := checksum.Sum(bytes.NewReader(content))
		if err != nil {
			return storage.ObjectInfo{}, err
		}
		etag = sum
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(content)), ETag: etag}, nil
}

func (f *fakeBucket) Fetch(key string) (io.ReadCloser, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeBucket) Download(key string, w io.Writer, observe storage.ObserveFunc) (int64, error) {
	content, ok := f.objects[key]
	if !ok {
		return 0, fmt.Errorf("get %s: not found", key)
	}
	if bad, ok := f.corrupt[key]; ok {
		content = bad
	}
	f.downloads[key]++

	var r io.Reader = bytes.NewReader(content)
	if observe != nil {
		r = io.TeeReader(r, observerWriter(observe))
	}
	return io.Copy(w, r)
}

// observerWriter adapts an ObserveFunc to io.Writer for TeeReader.
type observerWriter storage.ObserveFunc

func (o observerWriter) Write(p []byte) (int, error) {
	o(int64(len(p)))
	return len(p), nil
}

// inTempDir runs the test in a fresh working directory, since the engine
// writes local files by bare entry name.
func inTempDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
