package definition

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// files разрешает и читает файлы, на которые ссылается определение.
//
// Если root задан, читаются только файлы внутри root: абсолютные пути
// и пути с выходом наверх отклоняются, а чтение идёт через os.Root,
// поэтому символические ссылки наружу тоже не работают.
type files struct {
	root string
}

// resolve возвращает абсолютный путь к p относительно dir.
func (f files) resolve(dir, p string) (string, error) {
	if f.root == "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return filepath.Abs(p)
	}

	if filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %w: %s", ErrInvalidDefinition, ErrPathOutsideRoot, p)
	}
	path, err := filepath.Abs(filepath.Join(dir, p))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if _, err := f.rel(path); err != nil {
		return "", err
	}
	return path, nil
}

// rel возвращает путь относительно root.
func (f files) rel(path string) (string, error) {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %w: %s", ErrInvalidDefinition, ErrPathOutsideRoot, path)
	}
	return rel, nil
}

// read читает файл по пути, полученному из resolve.
func (f files) read(path string) ([]byte, error) {
	if f.root == "" {
		return os.ReadFile(path)
	}

	rel, err := f.rel(path)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(f.root)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}
	defer root.Close()

	file, err := root.Open(rel)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
