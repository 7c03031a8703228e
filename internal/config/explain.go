package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at the given YAML-like path and its
// source. Paths use the YAML key names; list items are addressed by
// index:
//
//	viewport.width
//	windows.z_tie_break
//	grid.compact.cell_size
//	icons.0.ref
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	var root yaml.Node
	if err := root.Encode(res.Config); err != nil {
		return nil, Source{}, fmt.Errorf("failed to encode config: %w", err)
	}
	node, err := lookupNode(&root, strings.Split(path, "."))
	if err != nil {
		return nil, Source{}, fmt.Errorf("unknown path: %s", path)
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil, Source{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupNode(node *yaml.Node, parts []string) (*yaml.Node, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if len(parts) == 0 {
		return node, nil
	}
	key := parts[0]
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return lookupNode(node.Content[i+1], parts[1:])
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(node.Content) {
			return lookupNode(node.Content[idx], parts[1:])
		}
	}
	return nil, fmt.Errorf("no such key %q", key)
}
