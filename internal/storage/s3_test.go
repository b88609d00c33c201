package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestS3Storage(t *testing.T, endpoint string) *S3Storage {
	t.Helper()

	storage, err := NewS3Storage(S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage
}

func TestNewS3Storage(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566") // LocalStack-like endpoint

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", storage.bucket)
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v, want us-east-1", storage.region)
	}
}

func TestS3Storage_Upload_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		if r.URL.Path != "/test-bucket/renders/test.mp4" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "video/mp4" {
			t.Errorf("unexpected content type: %s", got)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if !strings.Contains(string(body), "test content") {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage := newTestS3Storage(t, server.URL)

	url, err := storage.Upload(context.Background(), "renders/test.mp4", "video/mp4", bytes.NewReader([]byte("test content")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	expectedURL := server.URL + "/test-bucket/renders/test.mp4"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Storage_Open_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if r.URL.Path != "/media-bucket/clips/a.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("clip bytes"))
	}))
	defer server.Close()

	storage := newTestS3Storage(t, server.URL)

	rc, err := storage.Open(context.Background(), "media-bucket", "clips/a.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "clip bytes" {
		t.Errorf("got %q", content)
	}

	if _, err := storage.Open(context.Background(), "media-bucket", "missing.mp4"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestS3Storage_DefaultURL(t *testing.T) {
	storage := &S3Storage{bucket: "b", region: "eu-west-1"}
	if got := storage.objectURL("renders/x.mp4"); got != "https://b.s3.eu-west-1.amazonaws.com/renders/x.mp4" {
		t.Errorf("objectURL() = %s", got)
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		raw         string
		bucket, key string
		wantErr     bool
	}{
		{"s3://bucket/path/to/clip.mp4", "bucket", "path/to/clip.mp4", false},
		{"s3://bucket/", "", "", true},
		{"s3:///key", "", "", true},
		{"https://bucket/key", "", "", true},
		{"::not a url", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidS3URL) {
					t.Errorf("expected ErrInvalidS3URL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("got (%s, %s), want (%s, %s)", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
