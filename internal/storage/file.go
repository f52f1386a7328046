package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File guarda cada clave en un archivo JSON individual dentro de la carpeta
// de su espacio de nombres
type File struct {
	basePath string
}

// NewFile crea una nueva instancia de File
func NewFile(basePath string) (*File, error) {
	// Crear directorio base si no existe
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}

	return &File{
		basePath: basePath,
	}, nil
}

func (s *File) Get(_ context.Context, namespace, key string) ([]byte, error) {
	data, err := os.ReadFile(s.filePath(namespace, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *File) Put(_ context.Context, namespace, key string, value []byte) error {
	// Crear carpeta para el namespace si no existe
	dir := s.namespacePath(namespace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creando carpeta de sesión: %w", err)
	}

	// Escribir a un temporal y renombrar para no dejar archivos a medias
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.filePath(namespace, key))
}

func (s *File) Delete(_ context.Context, namespace, key string) error {
	err := os.Remove(s.filePath(namespace, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *File) Close() error { return nil }

// unsafeChars caracteres no válidos para nombres de archivo
var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "?", "_", "*", "_", "<", "_", ">", "_", "|", "_", "..", "_",
)

// filePath genera la ruta del archivo para una clave
func (s *File) filePath(namespace, key string) string {
	return filepath.Join(s.namespacePath(namespace), unsafeChars.Replace(key)+".json")
}

// namespacePath genera la ruta de carpeta para un namespace
func (s *File) namespacePath(namespace string) string {
	if namespace == "" {
		namespace = "default"
	}
	return filepath.Join(s.basePath, unsafeChars.Replace(namespace))
}
