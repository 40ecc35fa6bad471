// storage.go
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"medshop-backend/internal/model"
)

// Storage es el colaborador de archivos (recetas subidas).
// Delete es best-effort: un archivo huérfano se loguea, no rompe el flujo.
type Storage interface {
	Store(ctx context.Context, file *multipart.FileHeader, folder string) (*model.FileRef, error)
	Delete(ctx context.Context, publicID string) error
}

// LocalDisk guarda archivos bajo baseDir y los sirve como estáticos.
type LocalDisk struct {
	baseDir string
	baseURL string
}

func NewLocalDisk(baseDir, baseURL string) *LocalDisk {
	return &LocalDisk{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *LocalDisk) Store(ctx context.Context, file *multipart.FileHeader, folder string) (*model.FileRef, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("abriendo archivo subido: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	publicID := filepath.Join(folder, uuid.NewString()+ext)
	fullPath := filepath.Join(l.baseDir, publicID)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, err
	}
	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("guardando archivo: %w", err)
	}

	return &model.FileRef{
		URL:      l.baseURL + "/uploads/" + filepath.ToSlash(publicID),
		PublicID: publicID,
		Storage:  "local",
		Filename: file.Filename,
	}, nil
}

func (l *LocalDisk) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(l.baseDir, publicID)); err != nil && !os.IsNotExist(err) {
		log.Println("⚠ No se pudo borrar archivo:", publicID, err)
		return err
	}
	return nil
}
