// Package skillstore discovers, validates, and persists Skills: on-disk
// directories containing a SKILL.md with YAML front-matter plus optional
// bundled script entrypoints.
package skillstore

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the parsed `---`-delimited YAML header of a SKILL.md
// file. allowed-tools accepts either a whitespace-separated string or a
// YAML sequence; both normalize to Set.
type frontMatter struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Version       string            `yaml:"version"`
	License       string            `yaml:"license"`
	Compatibility string            `yaml:"compatibility"`
	AllowedTools  allowedToolsField `yaml:"allowed-tools"`
	Tags          []string          `yaml:"tags"`
	Metadata      map[string]string `yaml:"metadata"`
}

// allowedToolsField accepts a whitespace-separated string or a sequence
// of strings in the source YAML and normalizes both into a slice.
type allowedToolsField []string

func (a *allowedToolsField) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*a = strings.Fields(s)
		return nil
	case yaml.SequenceNode:
		var seq []string
		if err := value.Decode(&seq); err != nil {
			return err
		}
		*a = seq
		return nil
	default:
		return fmt.Errorf("allowed-tools must be a string or a list of strings")
	}
}

// splitFrontMatter separates the `---`-delimited YAML header from the
// markdown body that follows it. The file must start with a `---` line.
func splitFrontMatter(raw []byte) (yamlPart, body []byte, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty SKILL.md")
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, nil, fmt.Errorf("SKILL.md must begin with a '---' front-matter delimiter")
	}

	var yamlLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		yamlLines = append(yamlLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("unterminated front-matter block")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return []byte(strings.Join(yamlLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}

func parseFrontMatter(raw []byte) (frontMatter, string, error) {
	yamlPart, body, err := splitFrontMatter(raw)
	if err != nil {
		return frontMatter{}, "", err
	}

	dec := yaml.NewDecoder(bytes.NewReader(yamlPart))
	dec.KnownFields(true)
	var fm frontMatter
	if err := dec.Decode(&fm); err != nil {
		return frontMatter{}, "", fmt.Errorf("invalid front-matter: %w", err)
	}
	return fm, string(body), nil
}
