package storage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	key := ObjectKey(now, ".JPG")

	pattern := regexp.MustCompile(`^uploads/2026/03/[0-9a-f-]{36}\.jpg$`)
	if !pattern.MatchString(key) {
		t.Errorf("ObjectKey = %q, want match for %s", key, pattern)
	}
	if ObjectKey(now, "png") == ObjectKey(now, "png") {
		t.Error("ObjectKey should be unique per call")
	}
}

func TestNewR2_RequiresConfig(t *testing.T) {
	_, err := NewR2(R2Config{AccountID: "acc", Bucket: "media"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("NewR2 error = %v, want ErrNotConfigured", err)
	}
}

func TestR2_URL(t *testing.T) {
	cfg := R2Config{AccountID: "acc", AccessKeyID: "id", SecretAccessKey: "secret", Bucket: "media"}

	r, err := NewR2(cfg)
	if err != nil {
		t.Fatalf("NewR2: %v", err)
	}
	if got := r.URL("uploads/a.png"); got != "https://acc.r2.cloudflarestorage.com/media/uploads/a.png" {
		t.Errorf("URL = %q", got)
	}

	cfg.PublicBaseURL = "https://cdn.example.com/"
	r, err = NewR2(cfg)
	if err != nil {
		t.Fatalf("NewR2: %v", err)
	}
	if got := r.URL("uploads/a.png"); got != "https://cdn.example.com/uploads/a.png" {
		t.Errorf("URL = %q", got)
	}
}

// fakeS3 answers bucket HEAD and object PUT requests.
type fakeS3 struct {
	bucket string

	mu   sync.Mutex
	puts map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if parts[0] != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch {
	case r.Method == http.MethodHead && (len(parts) == 1 || parts[1] == ""):
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 2:
		f.mu.Lock()
		f.puts[parts[1]] = r.Header.Get("Content-Type")
		f.mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeR2(t *testing.T, bucket string) (*R2, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "media", puts: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	r, err := NewR2(R2Config{
		AccountID:       "acc",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		Bucket:          bucket,
		Endpoint:        srv.URL,
	})
	if err != nil {
		t.Fatalf("NewR2: %v", err)
	}
	return r, fake
}

func TestR2_Check(t *testing.T) {
	r, _ := newFakeR2(t, "media")
	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}

	missing, _ := newFakeR2(t, "other")
	if err := missing.Check(context.Background()); !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("Check error = %v, want ErrBucketNotFound", err)
	}
}

func TestR2_Put(t *testing.T) {
	r, fake := newFakeR2(t, "media")

	body := []byte("not really a png")
	obj, err := r.Put(context.Background(), "uploads/2026/03/x.png", bytes.NewReader(body), int64(len(body)), "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Key != "uploads/2026/03/x.png" || !strings.HasSuffix(obj.URL, "/media/uploads/2026/03/x.png") {
		t.Errorf("Put = %+v", obj)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if ct, ok := fake.puts["uploads/2026/03/x.png"]; !ok || ct != "image/png" {
		t.Errorf("recorded puts = %v", fake.puts)
	}
}
