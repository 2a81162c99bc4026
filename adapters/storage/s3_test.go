package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"dose-calculator/internal/errors"
)

// fakeS3 serves the subset of the S3 REST API the report store uses
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func response(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	body, ok := f.objects[key]
	switch req.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(req.Body)
		f.objects[key] = data
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet, http.MethodHead:
		if !ok {
			return response(http.StatusNotFound, nil, nil), nil
		}
		header := http.Header{
			"Content-Length": {fmt.Sprint(len(body))},
			"Content-Type":   {"application/json"},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return response(http.StatusOK, nil, header), nil
		}
		return response(http.StatusOK, body, header), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, nil, nil), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}

func newMockS3Store(t *testing.T) *S3Store {
	t.Helper()
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "dose-reports",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: &fakeS3{objects: make(map[string][]byte)}},
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return store
}

func TestS3StoreKeysUnderPrefix(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "dose-reports",
		Prefix:          "/lab-a/",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}

	report := sampleReport(t, "")
	if err := store.Save(context.Background(), report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := fake.objects["lab-a/"+report.ID+".json"]; !ok {
		t.Errorf("object not stored under prefix: %v", fake.objects)
	}

	// foreign objects under the prefix are ignored
	fake.objects["lab-a/readme.json"] = []byte("{}")
	all, err := store.List(context.Background(), nil)
	if err != nil || len(all) != 1 {
		t.Errorf("List = %d reports, %v", len(all), err)
	}
}

func TestS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{}); !errors.IsConfig(err) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}
