package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
)

// FileSystemStorage guarda los ficheros bajo un directorio raíz local.
type FileSystemStorage struct {
	root string
	mu   sync.Mutex // serializa escrituras y borrados sobre la misma raíz
}

// NewFileSystemStorage crea la raíz si no existe.
func NewFileSystemStorage(root string) (*FileSystemStorage, error) {
	if root == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileSystemStorage{root: root}, nil
}

func (s *FileSystemStorage) path(key string) (string, error) {
	clean, err := uploadDomain.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put escribe a un temporal y lo renombra para no dejar ficheros a medias.
func (s *FileSystemStorage) Put(ctx context.Context, key string, r io.Reader, info uploadDomain.ObjectInfo) (uploadDomain.ObjectInfo, error) {
	dst, err := s.path(key)
	if err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return uploadDomain.ObjectInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return uploadDomain.ObjectInfo{}, err
	}
	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return uploadDomain.ObjectInfo{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return uploadDomain.ObjectInfo{}, err
	}

	info.Key = key
	info.Size = written
	return info, nil
}

func (s *FileSystemStorage) Get(ctx context.Context, key string) (io.ReadCloser, uploadDomain.ObjectInfo, error) {
	src, err := s.path(key)
	if err != nil {
		return nil, uploadDomain.ObjectInfo{}, err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, uploadDomain.ObjectInfo{}, uploadDomain.ErrObjectNotFound
		}
		return nil, uploadDomain.ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, uploadDomain.ObjectInfo{}, err
	}
	if st.IsDir() {
		f.Close()
		return nil, uploadDomain.ObjectInfo{}, uploadDomain.ErrObjectNotFound
	}
	return f, uploadDomain.ObjectInfo{
		Key:         key,
		Size:        st.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(src)),
	}, nil
}

func (s *FileSystemStorage) Delete(ctx context.Context, key string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
