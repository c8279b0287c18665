package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/labtools/expsync/internal/storage"
)

// trackingCloser records whether the manifest stream was released.
type trackingCloser struct {
	io.Reader
	closed bool
}

func (t *trackingCloser) Close() error {
	t.closed = true
	return nil
}

// fakeBucket serves manifest bytes for Fetch; the other capabilities are
// unused by the reader.
type fakeBucket struct {
	content  []byte
	fetchErr error
	stream   *trackingCloser
}

func (f *fakeBucket) List(string) ([]string, error)           { return nil, nil }
func (f *fakeBucket) Stat(string) (storage.ObjectInfo, error) { return storage.ObjectInfo{}, nil }

func (f *fakeBucket) Fetch(string) (io.ReadCloser, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.stream = &trackingCloser{Reader: bytes.NewReader(f.content)}
	return f.stream, nil
}

func (f *fakeBucket) Download(string, io.Writer, storage.ObserveFunc) (int64, error) {
	return 0, nil
}

func TestReadReturnsSuccessfulNames(t *testing.T) {
	b := &fakeBucket{content: []byte(`{"successful": ["111-a.csv", "222-b.csv"], "failed": []}`)}

	names, err := Read(b, "123/456/status.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"111-a.csv", "222-b.csv"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if !b.stream.closed {
		t.Error("manifest stream not closed after successful parse")
	}
}

func TestReadFetchFailure(t *testing.T) {
	b := &fakeBucket{fetchErr: fmt.Errorf("connection refused")}

	_, err := Read(b, "123/status.json")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Key != "123/status.json" {
		t.Errorf("FetchError.Key = %s", fe.Key)
	}
}

func TestReadInvalidJSON(t *testing.T) {
	b := &fakeBucket{content: []byte(`{not json`)}

	_, err := Read(b, "123/status.json")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if !b.stream.closed {
		t.Error("manifest stream not closed after parse failure")
	}
}

func TestReadMissingField(t *testing.T) {
	b := &fakeBucket{content: []byte(`{"failed": ["x"]}`)}

	_, err := Read(b, "123/status.json")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestReadWrongFieldType(t *testing.T) {
	b := &fakeBucket{content: []byte(`{"successful": "not-a-list"}`)}

	_, err := Read(b, "123/status.json")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestIsManifest(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"123/456/status.json", true},
		{"status.json", true},
		{"123/456/111-a.csv", false},
		{"123/456/status.json.bak", false},
	}
	for _, c := range cases {
		if got := IsManifest(c.key); got != c.want {
			t.Errorf("IsManifest(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}
