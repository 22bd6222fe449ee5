package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Parse разбирает YAML-документ в корневую секцию. Пустой документ дает пустую секцию.
func Parse(data []byte, source string) (*Section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка разбора YAML %s: %w", source, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return newSection("", source, &yaml.Node{Kind: yaml.MappingNode}), nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: %w: document root must be a mapping", source, ErrWrongType)
	}
	return newSection("", source, root), nil
}

// LoadFile читает и разбирает один файл.
func LoadFile(filePath string) (*Section, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filePath, err)
	}
	return Parse(data, filePath)
}

// LoadDir читает все *.yml и *.yaml файлы каталога (без рекурсии), упорядоченные по имени.
// Файлы, которые не удалось прочитать, не прерывают загрузку: их ошибки объединяются в err.
func LoadDir(dir string) ([]*Section, error) {
	sections, err := LoadFS(os.DirFS(dir), ".")
	for _, s := range sections {
		s.source = filepath.Join(dir, s.source)
	}
	return sections, err
}

// LoadFS как LoadDir, но для произвольной файловой системы (например, embed.FS).
func LoadFS(fsys fs.FS, dir string) ([]*Section, error) {
	names, err := yamlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	var (
		sections []*Section
		errs     error
	)
	for _, name := range names {
		p := path.Join(dir, name)
		data, readErr := fs.ReadFile(fsys, p)
		if readErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("ошибка чтения файла %s: %w", p, readErr))
			continue
		}
		section, parseErr := Parse(data, p)
		if parseErr != nil {
			errs = multierr.Append(errs, parseErr)
			continue
		}
		sections = append(sections, section)
	}
	return sections, errs
}

// SeedFile копирует name из fsys в dest, если dest еще не существует.
func SeedFile(fsys fs.FS, name, dest string) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("ошибка проверки файла %s: %w", dest, err)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения встроенного файла %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("ошибка создания каталога для %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return false, fmt.Errorf("ошибка записи файла %s: %w", dest, err)
	}
	return true, nil
}

// SeedDir копирует YAML-файлы srcDir из fsys в destDir, если в destDir их еще нет.
// Возвращает список созданных файлов.
func SeedDir(fsys fs.FS, srcDir, destDir string) ([]string, error) {
	if existing, err := yamlFiles(os.DirFS(destDir), "."); err == nil && len(existing) > 0 {
		return nil, nil
	}
	names, err := yamlFiles(fsys, srcDir)
	if err != nil {
		return nil, err
	}
	var created []string
	for _, name := range names {
		dest := filepath.Join(destDir, name)
		ok, seedErr := SeedFile(fsys, path.Join(srcDir, name), dest)
		if seedErr != nil {
			return created, seedErr
		}
		if ok {
			created = append(created, dest)
		}
	}
	return created, nil
}

func yamlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
