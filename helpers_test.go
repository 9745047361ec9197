package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"vtcbackup/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const mib = 1024 * 1024

var errRejected = errors.New("remote rejected the request")

//newTestConfig builds a real config for dir with a test logger. Extra options are applied last
func newTestConfig(t *testing.T, dir string, dryrun bool, opts ...domain.Option) domain.Config {
	t.Helper()
	t.Setenv(domain.ConfigPathEnv, "")

	opts = append([]domain.Option{domain.WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	appConfig, err := domain.NewConfig(&domain.CommandOpts{BackupDir: dir, Dryrun: dryrun}, opts...)
	require.NoError(t, err)
	return appConfig
}

//writeRandomFile creates dir/name holding size random bytes and returns them
func writeRandomFile(t *testing.T, dir, name string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	return data
}

func backupFileFor(t *testing.T, path string) *domain.BackupFile {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return &domain.BackupFile{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Created: info.ModTime(),
	}
}

type uploadPartCall struct {
	UploadID   string
	PartNumber int32
	Size       int
}

//memStore is an in-memory ObjectStore. Completed objects end up in objects keyed by bucket/key
type memStore struct {
	mu sync.Mutex

	initiateErr error
	failPart    int32
	completeErr error
	abortErr    error

	initiated    []string
	storageClass string
	partCalls    []uploadPartCall
	completed    [][]domain.CompletedPart
	aborted      []string

	parts   map[string]map[int32][]byte
	objects map[string][]byte
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		parts:   map[string]map[int32][]byte{},
		objects: map[string][]byte{},
	}
}

func (m *memStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.initiated) + len(m.partCalls) + len(m.completed) + len(m.aborted)
}

func (m *memStore) Initiate(ctx context.Context, bucket, key, storageClass string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initiated = append(m.initiated, bucket+"/"+key)
	m.storageClass = storageClass
	if m.initiateErr != nil {
		return "", m.initiateErr
	}
	m.nextID++
	id := fmt.Sprintf("upload-%d", m.nextID)
	m.parts[id] = map[int32][]byte{}
	return id, nil
}

func (m *memStore) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partCalls = append(m.partCalls, uploadPartCall{UploadID: uploadID, PartNumber: partNumber, Size: len(body)})
	if partNumber == m.failPart {
		return "", errRejected
	}
	//the caller reuses its buffer, keep a copy like a real store would
	m.parts[uploadID][partNumber] = bytes.Clone(body)
	return hashPart(body), nil
}

func (m *memStore) Complete(ctx context.Context, bucket, key, uploadID string, parts []domain.CompletedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, append([]domain.CompletedPart(nil), parts...))
	if m.completeErr != nil {
		return m.completeErr
	}

	numbers := make([]int, 0, len(parts))
	for _, p := range parts {
		if p.ETag != hashPart(m.parts[uploadID][p.Number]) {
			return errors.New("etag mismatch")
		}
		numbers = append(numbers, int(p.Number))
	}
	sort.Ints(numbers)

	var obj []byte
	for _, n := range numbers {
		obj = append(obj, m.parts[uploadID][int32(n)]...)
	}
	m.objects[bucket+"/"+key] = obj
	delete(m.parts, uploadID)
	return nil
}

func (m *memStore) Abort(ctx context.Context, bucket, key, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted = append(m.aborted, uploadID)
	if m.abortErr != nil {
		return m.abortErr
	}
	delete(m.parts, uploadID)
	return nil
}

//recordingNotifier keeps every alert it is asked to publish
type recordingNotifier struct {
	err    error
	alerts []domain.Alert
}

func (n *recordingNotifier) Publish(ctx context.Context, alert domain.Alert) error {
	n.alerts = append(n.alerts, alert)
	if n.err != nil {
		return &domain.NotificationError{Channel: "test-topic", Err: n.err}
	}
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
