package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// ItemType tags what kind of bundle a registry item is.
type ItemType string

const (
	TypeUI      ItemType = "registry:ui"
	TypeLib     ItemType = "registry:lib"
	TypeHook    ItemType = "registry:hook"
	TypeTheme   ItemType = "registry:theme"
	TypeBlock   ItemType = "registry:block"
	TypeExample ItemType = "registry:example"
)

// ItemTypes lists every accepted item type in registry order.
var ItemTypes = []ItemType{TypeUI, TypeLib, TypeHook, TypeTheme, TypeBlock, TypeExample}

// ParseItemType accepts both the prefixed ("registry:ui") and the short
// ("ui") spelling. Anything else is rejected.
func ParseItemType(s string) (ItemType, error) {
	name := strings.TrimPrefix(s, "registry:")
	for _, t := range ItemTypes {
		if string(t) == "registry:"+name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// File is one source file of a registry item.
type File struct {
	Path    string   `json:"path"`
	Content string   `json:"content,omitempty"`
	Target  string   `json:"target,omitempty"`
	Type    ItemType `json:"type,omitempty"`
}

// HasContent reports whether the file carries inline source and can be
// diffed.
func (f File) HasContent() bool {
	return f.Content != ""
}

// Item is a validated registry entry.
type Item struct {
	Name                 string   `json:"name"`
	Type                 ItemType `json:"type"`
	Description          string   `json:"description,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
	Files                []File   `json:"files,omitempty"`
}

// FilePaths returns the registry-relative path of every file.
func (i Item) FilePaths() []string {
	paths := make([]string, len(i.Files))
	for n, f := range i.Files {
		paths[n] = f.Path
	}
	return paths
}

// Find returns the item named name. Matching is exact.
func Find(items []Item, name string) (Item, bool) {
	for _, item := range items {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}

// BaseColor holds the color tokens a style is rendered with.
type BaseColor struct {
	InlineColors         map[string]map[string]string `json:"inlineColors,omitempty"`
	CSSVars              map[string]map[string]string `json:"cssVars,omitempty"`
	InlineColorsTemplate string                       `json:"inlineColorsTemplate,omitempty"`
	CSSVarsTemplate      string                       `json:"cssVarsTemplate,omitempty"`
}

// wireItem mirrors the JSON document before validation.
type wireItem struct {
	Name                 string     `json:"name"`
	Type                 string     `json:"type"`
	Description          string     `json:"description"`
	Dependencies         []string   `json:"dependencies"`
	RegistryDependencies []string   `json:"registryDependencies"`
	Files                []wireFile `json:"files"`
}

// wireFile is either a bare path string or an object.
type wireFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Target  string `json:"target"`
	Type    string `json:"type"`
}

// UnmarshalJSON accepts "path/to/file.tsx" as well as {"path": ...}.
func (f *wireFile) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &f.Path)
	}
	type plain wireFile
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = wireFile(p)
	return nil
}

// toItem validates w and converts it to a domain Item.
func (w wireItem) toItem() (Item, error) {
	if strings.TrimSpace(w.Name) == "" {
		return Item{}, fmt.Errorf("missing name")
	}
	itemType, err := ParseItemType(w.Type)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", w.Name, err)
	}

	item := Item{
		Name:                 w.Name,
		Type:                 itemType,
		Description:          w.Description,
		Dependencies:         w.Dependencies,
		RegistryDependencies: w.RegistryDependencies,
	}

	for i, wf := range w.Files {
		if strings.TrimSpace(wf.Path) == "" {
			return Item{}, fmt.Errorf("item %q: file %d has no path", w.Name, i)
		}
		file := File{
			Path:    wf.Path,
			Content: wf.Content,
			Target:  wf.Target,
		}
		if wf.Type != "" {
			fileType, err := ParseItemType(wf.Type)
			if err != nil {
				return Item{}, fmt.Errorf("item %q: file %q: %w", w.Name, wf.Path, err)
			}
			file.Type = fileType
		}
		item.Files = append(item.Files, file)
	}

	return item, nil
}

// DecodeIndex parses and validates an index document. Any malformed entry
// fails the whole index.
func DecodeIndex(data []byte) ([]Item, error) {
	var raw []wireItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.CodeRegistryUnreachable).
			WithDetail("could not parse registry index").
			Wrap(err)
	}
	return convertItems(raw)
}

// DecodeItems validates items that arrived as already-parsed JSON, such as
// the body of a server request.
func DecodeItems(raw json.RawMessage) ([]Item, error) {
	var wire []wireItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.New(errors.CodeValidation).
			WithDetail("registry must be an array of items").
			Wrap(err)
	}
	return convertItems(wire)
}

func convertItems(raw []wireItem) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, w := range raw {
		item, err := w.toItem()
		if err != nil {
			return nil, errors.New(errors.CodeValidation).
				WithDetailf("registry entry %d: %v", i, err)
		}
		if seen[item.Name] {
			return nil, errors.New(errors.CodeValidation).
				WithDetailf("registry entry %d: duplicate item name %q", i, item.Name)
		}
		seen[item.Name] = true
		items = append(items, item)
	}
	return items, nil
}

// DecodeItem parses and validates a single style item document.
func DecodeItem(data []byte) (Item, error) {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return Item{}, errors.New(errors.CodeRegistryUnreachable).
			WithDetail("could not parse registry item").
			Wrap(err)
	}
	item, err := w.toItem()
	if err != nil {
		return Item{}, errors.New(errors.CodeValidation).WithDetail(err.Error())
	}
	return item, nil
}

// Validate re-checks an Item built in memory.
func Validate(item Item) error {
	w := wireItem{Name: item.Name, Type: string(item.Type)}
	for _, f := range item.Files {
		w.Files = append(w.Files, wireFile{Path: f.Path, Type: string(f.Type)})
	}
	if _, err := w.toItem(); err != nil {
		return errors.New(errors.CodeValidation).WithDetail(err.Error())
	}
	return nil
}
