package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/deltime/internal/task"
)

// AppendTask adds def to the tasks list of the configuration file at path,
// creating the file when it does not exist. Comments and the order of the
// other keys are preserved.
func AppendTask(path string, def task.Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var doc yaml.Node
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
		}
	case err != nil:
		return fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	root, err := documentRoot(&doc)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	var item yaml.Node
	if err := item.Encode(def); err != nil {
		return fmt.Errorf("config: encoding task: %w", err)
	}
	seq := tasksNode(root)
	seq.Style &^= yaml.FlowStyle
	seq.Content = append(seq.Content, &item)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// documentRoot returns the top-level mapping of doc, initialising an empty
// document with the current version.
func documentRoot(doc *yaml.Node) (*yaml.Node, error) {
	if doc.Kind == 0 {
		doc.Kind = yaml.DocumentNode
	}
	if doc.Kind != yaml.DocumentNode {
		return nil, errors.New("not a YAML document")
	}
	if len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: CurrentVersion, Style: yaml.DoubleQuotedStyle},
			},
		}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("top level is not a mapping")
	}
	return root, nil
}

// tasksNode returns the sequence under the "tasks" key of root, adding an
// empty one when missing.
func tasksNode(root *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "tasks" {
			continue
		}
		seq := root.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			*seq = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		}
		return seq
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "tasks"},
		seq,
	)
	return seq
}
