package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// ErrBlobNotFound is returned when the requested object does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// PutInput describes one object upload.
type PutInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// BlobStore is the byte-storage abstraction behind course materials.
// Implementations must tolerate Remove of a missing object: material
// deletion is idempotent end to end.
type BlobStore interface {
	Put(ctx context.Context, input PutInput) error
	Remove(ctx context.Context, bucket, key string) error
	PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// MemoryBlobStore is an in-memory BlobStore used in tests.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutErr and RemoveErr, when set, make the corresponding call
	// fail. They let tests exercise the storage failure paths.
	PutErr    error
	RemoveErr error
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (m *MemoryBlobStore) objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryBlobStore) Put(ctx context.Context, input PutInput) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.objectKey(input.Bucket, input.Key)] = data
	return nil
}

func (m *MemoryBlobStore) Remove(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.objects, m.objectKey(bucket, key))
	return nil
}

func (m *MemoryBlobStore) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[m.objectKey(bucket, key)]; !ok {
		return "", ErrBlobNotFound
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", bucket, url.PathEscape(key), int64(expiry.Seconds())), nil
}

// Has reports whether the object exists, for test assertions.
func (m *MemoryBlobStore) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[m.objectKey(bucket, key)]
	return ok
}

// Len returns the number of stored objects, for test assertions.
func (m *MemoryBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
