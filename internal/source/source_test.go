package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	bucket, key string
	body        string
	err         error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(b)
}

func TestLocal_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rc, err := Local{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := readAll(t, rc); got != "a,b\n" {
		t.Errorf("content = %q", got)
	}

	if _, err := (Local{}).Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestS3_Open(t *testing.T) {
	fake := &fakeS3{body: "xlsx bytes"}
	rc, err := NewS3WithClient(fake).Open(context.Background(), "s3://boards/exports/Releases-Board.xlsx")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := readAll(t, rc); got != "xlsx bytes" {
		t.Errorf("content = %q", got)
	}
	if fake.bucket != "boards" || fake.key != "exports/Releases-Board.xlsx" {
		t.Errorf("requested %s/%s", fake.bucket, fake.key)
	}
}

func TestS3_OpenErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
	}{
		{"not s3", "/tmp/board.xlsx", nil},
		{"no key", "s3://boards", nil},
		{"client failure", "s3://boards/a.xlsx", errors.New("access denied")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3WithClient(&fakeS3{err: tt.err}).Open(context.Background(), tt.path)
			if err == nil {
				t.Fatal("Open() error = nil, want error")
			}
		})
	}
}

func TestRouter_Dispatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.csv")
	if err := os.WriteFile(path, []byte("local"), 0o600); err != nil {
		t.Fatal(err)
	}

	builds := 0
	fake := &fakeS3{body: "remote"}
	r := &Router{
		Local: Local{},
		S3: func(context.Context) (Opener, error) {
			builds++
			return NewS3WithClient(fake), nil
		},
	}

	rc, err := r.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("local Open() error = %v", err)
	}
	if got := readAll(t, rc); got != "local" {
		t.Errorf("local content = %q", got)
	}
	if builds != 0 {
		t.Errorf("s3 client built for a local path")
	}

	for i := 0; i < 2; i++ {
		rc, err = r.Open(context.Background(), "s3://b/k.csv")
		if err != nil {
			t.Fatalf("s3 Open() error = %v", err)
		}
		if got := readAll(t, rc); got != "remote" {
			t.Errorf("s3 content = %q", got)
		}
	}
	if builds != 1 {
		t.Errorf("s3 client built %d times, want 1", builds)
	}
}

func TestRouter_S3FactoryError(t *testing.T) {
	r := &Router{
		Local: Local{},
		S3: func(context.Context) (Opener, error) {
			return nil, errors.New("no credentials")
		},
	}
	if _, err := r.Open(context.Background(), "s3://b/k.csv"); err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("Open() error = %v", err)
	}
}
