// Package cache локальная копия последнего снимка для показа без сети.
// Формат файла: JSON-массив {date, startTime, endTime, ownerId, id}.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/region23/navatar/internal/booking"
)

// File кэш снимка в файле
type File struct {
	path string
}

// New создает кэш по пути path
func New(path string) *File {
	return &File{path: path}
}

// Path возвращает путь к файлу
func (f *File) Path() string { return f.path }

// Save атомарно перезаписывает файл снимком
func (f *File) Save(items []booking.Reservation) error {
	if items == nil {
		items = []booking.Reservation{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".navatar-cache-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load читает снимок. Отсутствующий файл дает пустой список.
func (f *File) Load() ([]booking.Reservation, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []booking.Reservation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var items []booking.Reservation
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	return items, nil
}
