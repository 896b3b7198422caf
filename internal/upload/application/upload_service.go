package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordCreator es la parte del servicio de registros que usa la subida.
type RecordCreator interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (*recordDomain.Record, error)
}

// UploadInput describe un fichero recibido.
type UploadInput struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

type UploadService struct {
	storage uploadDomain.FileStorage
	records RecordCreator
	log     *zap.Logger
	newKey  func(filename string) string
}

func NewUploadService(storage uploadDomain.FileStorage, records RecordCreator, log *zap.Logger) *UploadService {
	return &UploadService{
		storage: storage,
		records: records,
		log:     log,
		newKey:  NewKey,
	}
}

// NewKey genera una clave única conservando la extensión original.
func NewKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return uuid.NewString() + ext
}

// Upload guarda el fichero y crea su registro. Si el registro falla el
// objeto se borra.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*recordDomain.Record, error) {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(in.Filename, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return nil, sharedDomain.ValidationError{Field: "file", Msg: "is required"}
	}

	key := s.newKey(name)
	info, err := s.storage.Put(ctx, key, in.Body, uploadDomain.ObjectInfo{
		Size:        in.Size,
		ContentType: in.ContentType,
	})
	if err != nil {
		return nil, sharedDomain.InternalFault{Msg: "storing upload", Err: err}
	}

	rec, err := s.records.Create(ctx, recordDomain.CollectionUpload, map[string]interface{}{
		"name":        name,
		"path":        uploadDomain.PathForKey(key),
		"size":        info.Size,
		"contentType": in.ContentType,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.log.Warn("Failed to remove orphan upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	s.log.Info("📎 File uploaded",
		zap.String("key", key),
		zap.Int64("size", info.Size))
	return rec, nil
}

// Open devuelve el contenido de una clave. El llamador cierra el reader.
func (s *UploadService) Open(ctx context.Context, key string) (io.ReadCloser, uploadDomain.ObjectInfo, error) {
	rc, info, err := s.storage.Get(ctx, key)
	switch {
	case err == nil:
		return rc, info, nil
	case errors.Is(err, uploadDomain.ErrObjectNotFound), errors.Is(err, uploadDomain.ErrInvalidKey):
		return nil, uploadDomain.ObjectInfo{}, sharedDomain.NotFoundError{Resource: "file", Err: err}
	default:
		return nil, uploadDomain.ObjectInfo{}, sharedDomain.InternalFault{Msg: fmt.Sprintf("reading upload %q", key), Err: err}
	}
}

// Attachments adapta FileStorage a recordDomain.AttachmentStore. Las rutas
// que no empiezan por "uploads/" (URLs externas) se ignoran.
type Attachments struct {
	Storage uploadDomain.FileStorage
}

func (a Attachments) Remove(ctx context.Context, path string) error {
	key, ok := uploadDomain.KeyFromPath(path)
	if !ok {
		return nil
	}
	return a.Storage.Delete(ctx, key)
}
