package content

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingKey - ключ отсутствует в секции.
	ErrMissingKey = errors.New("key not found")
	// ErrWrongType - значение ключа имеет неожиданную форму.
	ErrWrongType = errors.New("unexpected value type")
)

// Section - именованная секция YAML-документа: упорядоченное отображение ключей
// на скаляры, списки скаляров или вложенные секции.
type Section struct {
	name     string
	source   string
	node     *yaml.Node
	fallback *Section
}

func newSection(name, source string, node *yaml.Node) *Section {
	return &Section{name: name, source: source, node: resolveAlias(node)}
}

// Name - ключ секции в родителе. У корня документа пустой.
func (s *Section) Name() string { return s.name }

// Source - файл, из которого прочитана секция.
func (s *Section) Source() string { return s.source }

// WithFallback возвращает секцию, которая ищет отсутствующие ключи в def.
func (s *Section) WithFallback(def *Section) *Section {
	return &Section{name: s.name, source: s.source, node: s.node, fallback: def}
}

// Keys возвращает ключи секции в порядке документа.
func (s *Section) Keys() []string {
	if s == nil || s.node == nil || s.node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(s.node.Content)/2)
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		keys = append(keys, s.node.Content[i].Value)
	}
	return keys
}

// Children возвращает вложенные секции первого уровня в порядке документа.
// Ключи со скалярными значениями пропускаются.
func (s *Section) Children() []*Section {
	if s == nil || s.node == nil || s.node.Kind != yaml.MappingNode {
		return nil
	}
	var out []*Section
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		value := resolveAlias(s.node.Content[i+1])
		if value.Kind == yaml.MappingNode {
			out = append(out, newSection(s.node.Content[i].Value, s.source, value))
		}
	}
	return out
}

// Has проверяет наличие ключа по пути через точку ("play.start").
func (s *Section) Has(path string) bool {
	_, ok := s.lookup(path)
	return ok
}

// Section возвращает вложенную секцию по пути.
func (s *Section) Section(path string) (*Section, error) {
	node, err := s.get(path)
	if err != nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: %w: expected section", path, ErrWrongType)
	}
	return newSection(lastSegment(path), s.source, node), nil
}

// String возвращает скалярное значение.
func (s *Section) String(path string) (string, error) {
	node, err := s.get(path)
	if err != nil {
		return "", err
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%s: %w: expected scalar", path, ErrWrongType)
	}
	return node.Value, nil
}

// StringOr возвращает скаляр или def, если ключа нет или он не скаляр.
func (s *Section) StringOr(path, def string) string {
	v, err := s.String(path)
	if err != nil {
		return def
	}
	return v
}

// Bool возвращает булево значение (true/false, yes/no, on/off).
func (s *Section) Bool(path string) (bool, error) {
	node, err := s.get(path)
	if err != nil {
		return false, err
	}
	var v bool
	if node.Kind != yaml.ScalarNode {
		return false, fmt.Errorf("%s: %w: expected bool", path, ErrWrongType)
	}
	if err := node.Decode(&v); err != nil {
		return false, fmt.Errorf("%s: %w: %v", path, ErrWrongType, err)
	}
	return v, nil
}

// Int возвращает целое значение.
func (s *Section) Int(path string) (int, error) {
	node, err := s.get(path)
	if err != nil {
		return 0, err
	}
	var v int
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%s: %w: expected integer", path, ErrWrongType)
	}
	if err := node.Decode(&v); err != nil {
		return 0, fmt.Errorf("%s: %w: %v", path, ErrWrongType, err)
	}
	return v, nil
}

// Strings возвращает список скаляров. Одиночный скаляр трактуется как список из одного элемента.
func (s *Section) Strings(path string) ([]string, error) {
	node, err := s.get(path)
	if err != nil {
		return nil, err
	}
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for i, item := range node.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%s[%d]: %w: expected scalar", path, i, ErrWrongType)
			}
			out = append(out, item.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w: expected list", path, ErrWrongType)
	}
}

// StringsOr возвращает список или def.
func (s *Section) StringsOr(path string, def []string) []string {
	v, err := s.Strings(path)
	if err != nil {
		return def
	}
	return v
}

// Sections возвращает упорядоченный список секций. Значение может быть
// списком отображений либо отображением именованных секций.
func (s *Section) Sections(path string) ([]*Section, error) {
	node, err := s.get(path)
	if err != nil {
		return nil, err
	}
	switch node.Kind {
	case yaml.MappingNode:
		return newSection(lastSegment(path), s.source, node).Children(), nil
	case yaml.SequenceNode:
		out := make([]*Section, 0, len(node.Content))
		for i, item := range node.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%s[%d]: %w: expected section", path, i, ErrWrongType)
			}
			out = append(out, newSection(fmt.Sprintf("%d", i+1), s.source, item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w: expected list of sections", path, ErrWrongType)
	}
}

func (s *Section) get(path string) (*yaml.Node, error) {
	node, ok := s.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingKey)
	}
	return node, nil
}

func (s *Section) lookup(path string) (*yaml.Node, bool) {
	if s == nil {
		return nil, false
	}
	if node, ok := find(s.node, path); ok {
		return node, true
	}
	if s.fallback != nil {
		return s.fallback.lookup(path)
	}
	return nil, false
}

func find(node *yaml.Node, path string) (*yaml.Node, bool) {
	current := resolveAlias(node)
	for _, segment := range strings.Split(path, ".") {
		if current == nil || current.Kind != yaml.MappingNode {
			return nil, false
		}
		var next *yaml.Node
		for i := 0; i+1 < len(current.Content); i += 2 {
			if current.Content[i].Value == segment {
				next = resolveAlias(current.Content[i+1])
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
