package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestSealOpen(t *testing.T) {
	plain := []byte("%PDF-1.7 result bytes")
	sealed, err := Seal(plain, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("sealed data contains the plaintext")
	}
	got, err := Open(sealed, "s3cret")
	if err != nil || !bytes.Equal(got, plain) {
		t.Fatalf("Open = %q, %v", got, err)
	}
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Error("Open with wrong secret succeeded")
	}
	if _, err := Open(plain, "s3cret"); !errors.Is(err, ErrNotSealed) {
		t.Errorf("Open(plain) = %v, want ErrNotSealed", err)
	}
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, "0b7c-42", []byte("doc")); err != nil {
		t.Fatal(err)
	}
	got, err := l.Get(ctx, "0b7c-42")
	if err != nil || string(got) != "doc" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := l.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v", err)
	}
	if err := l.Put(ctx, "../escape", []byte("x")); err == nil {
		t.Error("Put accepted a path traversal id")
	}
}

// fakeS3 keeps objects in memory.
type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = b
	f.meta[*in.Key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3Sealed(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	st := NewS3(fake, "bucket", "results", "k3y")
	if err := st.Put(ctx, "abc", []byte("%PDF-doc")); err != nil {
		t.Fatal(err)
	}
	raw := fake.objects["results/abc.pdf"]
	if !bytes.HasPrefix(raw, sealMagic) {
		t.Fatalf("stored object is not sealed: %q", raw)
	}
	if fake.meta["results/abc.pdf"]["encrypted"] != "true" {
		t.Errorf("metadata = %v", fake.meta["results/abc.pdf"])
	}
	got, err := st.Get(ctx, "abc")
	if err != nil || string(got) != "%PDF-doc" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := st.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope) = %v, want ErrNotFound", err)
	}
	if err := st.Ping(ctx); err != nil {
		t.Error(err)
	}
}
