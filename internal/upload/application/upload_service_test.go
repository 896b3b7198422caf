package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	recordApp "github.com/davicafu/hexacrud/internal/record/application"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/davicafu/hexacrud/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(_ context.Context, key string, r io.Reader, info uploadDomain.ObjectInfo) (uploadDomain.ObjectInfo, error) {
	if m.putErr != nil {
		return uploadDomain.ObjectInfo{}, m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	info.Key = key
	info.Size = int64(len(data))
	return info, nil
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, uploadDomain.ObjectInfo, error) {
	if _, err := uploadDomain.CleanKey(key); err != nil {
		return nil, uploadDomain.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, uploadDomain.ObjectInfo{}, uploadDomain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), uploadDomain.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func newUploads(t *testing.T) (*UploadService, *recordApp.RecordService, *mocks.InMemoryRecordRepo, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	repo := mocks.NewInMemoryRecordRepo()
	records := recordApp.NewRecordService(repo, mocks.NewDummyCache(), zap.NewNop(),
		recordApp.WithAttachmentStore(Attachments{Storage: storage}))
	svc := NewUploadService(storage, records, zap.NewNop())
	svc.newKey = func(string) string { return "fixed.png" }
	return svc, records, repo, storage
}

func TestUpload_StoresFileAndCreatesRecord(t *testing.T) {
	svc, _, _, storage := newUploads(t)

	rec, err := svc.Upload(context.Background(), UploadInput{
		Filename:    `C:\fotos\Playa.PNG`,
		ContentType: "image/png",
		Body:        strings.NewReader("data"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Playa.PNG", rec.String("name"))
	assert.Equal(t, "uploads/fixed.png", rec.String("path"))
	assert.Equal(t, "image/png", rec.String("contentType"))
	assert.Equal(t, int64(4), rec.Fields["size"])
	assert.Equal(t, []byte("data"), storage.objects["fixed.png"])
}

func TestUpload_RecordFailureRemovesObject(t *testing.T) {
	svc, _, repo, storage := newUploads(t)
	repo.Err = errors.New("db down")

	_, err := svc.Upload(context.Background(), UploadInput{Filename: "a.txt", Body: strings.NewReader("x")})

	assert.Error(t, err)
	assert.Empty(t, storage.objects)
}

func TestUpload_Errors(t *testing.T) {
	svc, _, _, storage := newUploads(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{Filename: " ", Body: strings.NewReader("x")})
	assert.True(t, sharedDomain.IsValidation(err))

	storage.putErr = errors.New("disk full")
	_, err = svc.Upload(ctx, UploadInput{Filename: "a.txt", Body: strings.NewReader("x")})
	assert.True(t, sharedDomain.IsInternal(err))
}

func TestOpen(t *testing.T) {
	svc, _, _, _ := newUploads(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, UploadInput{Filename: "a.png", Body: strings.NewReader("img")})
	require.NoError(t, err)

	rc, info, err := svc.Open(ctx, "fixed.png")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(3), info.Size)

	_, _, err = svc.Open(ctx, "missing.png")
	assert.True(t, sharedDomain.IsNotFound(err))

	_, _, err = svc.Open(ctx, "../etc/passwd")
	assert.True(t, sharedDomain.IsNotFound(err))
}

func TestHardDeleteOfUploadRecordRemovesFile(t *testing.T) {
	svc, records, _, storage := newUploads(t)
	ctx := context.Background()
	rec, err := svc.Upload(ctx, UploadInput{Filename: "a.png", Body: strings.NewReader("img")})
	require.NoError(t, err)

	require.NoError(t, records.HardDelete(ctx, recordDomain.CollectionUpload, rec.ID))

	assert.Empty(t, storage.objects)
}

func TestAttachments_IgnoresForeignPaths(t *testing.T) {
	storage := newMemStorage()
	storage.objects["keep.png"] = []byte("x")
	a := Attachments{Storage: storage}

	assert.NoError(t, a.Remove(context.Background(), "https://cdn.example.com/keep.png"))
	assert.Contains(t, storage.objects, "keep.png")

	assert.NoError(t, a.Remove(context.Background(), "uploads/keep.png"))
	assert.NotContains(t, storage.objects, "keep.png")
}

func TestNewKey_KeepsExtension(t *testing.T) {
	k := NewKey("Foto.JPG")
	assert.True(t, strings.HasSuffix(k, ".jpg"))
	assert.NotEqual(t, k, NewKey("Foto.JPG"))
}
