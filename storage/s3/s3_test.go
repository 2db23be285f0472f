package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/rorio/config"
	"github.com/c360studio/rorio/storage"
)

func TestNewValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, &config.S3Config{Region: "us-east-1"}); err == nil {
		t.Error("New() = nil error, want error for missing bucket")
	}
	if _, err := New(ctx, &config.S3Config{Bucket: "b", Region: "us-east-1", AccessKeyID: "only-key"}); err == nil {
		t.Error("New() = nil error, want error for a key without secret")
	}

	s, err := New(ctx, &config.S3Config{
		Bucket:          "b",
		Region:          "us-east-1",
		AccessKeyID:     "k",
		SecretAccessKey: "s",
		Endpoint:        "http://localhost:9000",
	})
	if err != nil {
		t.Fatalf("New() with static keys error: %v", err)
	}
	if s == nil {
		t.Error("New() returned nil storage")
	}
}

// mockS3 speaks just enough path-style S3 for object CRUD and listing.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
}

func newTestStorage(t *testing.T) (*S3Storage, *mockS3) {
	t.Helper()

	ms := &mockS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
	const bucket = "rorio-test"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")

		ms.mu.Lock()
		defer ms.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			meta := map[string]string{}
			for hk, hv := range r.Header {
				lk := strings.ToLower(hk)
				if strings.HasPrefix(lk, "x-amz-meta-") && len(hv) > 0 {
					meta[strings.TrimPrefix(lk, "x-amz-meta-")] = hv[0]
				}
			}
			ms.objects[key] = data
			ms.meta[key] = meta
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			if r.URL.Query().Get("list-type") == "2" {
				prefix := r.URL.Query().Get("prefix")
				var keys []string
				for k := range ms.objects {
					if strings.HasPrefix(k, prefix) {
						keys = append(keys, k)
					}
				}
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
				for _, k := range keys {
					fmt.Fprintf(w, `<Contents><Key>%s</Key></Contents>`, k)
				}
				fmt.Fprint(w, `</ListBucketResult>`)
				return
			}
			data, ok := ms.objects[key]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.WriteHeader(http.StatusOK)
			w.Write(data)

		case http.MethodHead:
			data, ok := ms.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			for mk, mv := range ms.meta[key] {
				w.Header().Set("x-amz-meta-"+mk, mv)
			}
			w.WriteHeader(http.StatusOK)

		case http.MethodDelete:
			delete(ms.objects, key)
			delete(ms.meta, key)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), &config.S3Config{
		Bucket:          bucket,
		Region:          "us-east-1",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		Endpoint:        srv.URL,
	})
	if err != nil {
		t.Fatalf("New() for mock S3: %v", err)
	}
	return s, ms
}

func TestUploadStoresChecksum(t *testing.T) {
	s, ms := newTestStorage(t)
	ctx := context.Background()

	data := []byte("<rdf:RDF/>")
	result, err := s.Upload(ctx, "rorio/v1/rorio.owl", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if result.Size != int64(len(data)) || len(result.Checksum) != 64 {
		t.Errorf("Upload() = %+v", result)
	}

	ms.mu.Lock()
	stored := ms.meta["rorio/v1/rorio.owl"][storage.ChecksumMetadataKey]
	ms.mu.Unlock()
	if stored != result.Checksum {
		t.Errorf("stored checksum = %q, want %q", stored, result.Checksum)
	}

	meta, err := s.GetMetadata(ctx, "rorio/v1/rorio.owl")
	if err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}
	if meta.Checksum != result.Checksum || meta.Size != int64(len(data)) {
		t.Errorf("GetMetadata() = %+v", meta)
	}
}

func TestDownloadAndDelete(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	want := []byte("format-version: 1.4\n")
	if _, err := s.Upload(ctx, "rorio.obo", bytes.NewReader(want), int64(len(want))); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rc, err := s.Download(ctx, "rorio.obo")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, want) {
		t.Errorf("Download() = %q, want %q", got, want)
	}

	exists, err := s.Exists(ctx, "rorio.obo")
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v; want true", exists, err)
	}
	if err := s.Delete(ctx, "rorio.obo"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	exists, err = s.Exists(ctx, "rorio.obo")
	if err != nil || exists {
		t.Errorf("Exists() after delete = %v, %v; want false, nil", exists, err)
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Download(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetURL(ctx, "missing", time.Minute); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetURL() error = %v, want ErrNotFound", err)
	}
}

func TestGetURLPresigns(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "latest/rorio.json", strings.NewReader("{}"), 2); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	url, err := s.GetURL(ctx, "latest/rorio.json", 15*time.Minute)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	if !strings.Contains(url, "/rorio-test/latest/rorio.json") || !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("GetURL() = %q, want a presigned path-style URL", url)
	}
}

func TestList(t *testing.T) {
	s, ms := newTestStorage(t)
	ctx := context.Background()

	ms.objects["rorio/latest/b.owl"] = []byte("b")
	ms.objects["rorio/latest/a.obo"] = []byte("a")
	ms.objects["rorio/v1/a.obo"] = []byte("a")

	keys, err := s.List(ctx, "rorio/latest/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if strings.Join(keys, ",") != "rorio/latest/a.obo,rorio/latest/b.owl" {
		t.Errorf("List() = %v", keys)
	}
}
