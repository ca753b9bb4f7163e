package datasource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/pick/pkg/debug"
)

// maxLineSize bounds a single line in lines and jsonl sources.
const maxLineSize = 10 * 1024 * 1024

// readLines returns trimmed, non-empty, non-comment lines without duplicates.
func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var labels []string
	seen := make(map[string]struct{})
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return labels, nil
}

// readJSON accepts an array of strings or an array of objects carrying field.
func readJSON(r io.Reader, field string) ([]string, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding json array: %w", err)
	}

	labels := make([]string, 0, len(items))
	for i, raw := range items {
		label, err := jsonLabel(raw, field)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// readJSONL decodes one value per line. Malformed lines are skipped.
func readJSONL(r io.Reader, field string) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var labels []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		label, err := jsonLabel(line, field)
		if err != nil {
			debug.Log("datasource: skipping malformed jsonl line %d: %v", lineNum, err)
			continue
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading jsonl: %w", err)
	}
	return labels, nil
}

func jsonLabel(raw []byte, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("expected string or object: %w", err)
	}
	return objectLabel(obj, field)
}

// readYAML accepts a sequence of scalars or a sequence of mappings carrying field.
func readYAML(r io.Reader, field string) ([]string, error) {
	var items []any
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding yaml sequence: %w", err)
	}

	labels := make([]string, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]any:
			label, err := objectLabel(v, field)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			labels = append(labels, label)
		case nil:
			continue
		default:
			labels = append(labels, fmt.Sprint(v))
		}
	}
	return labels, nil
}

func objectLabel(obj map[string]any, field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("%w: set a field for object candidates", ErrMissingField)
	}
	v, ok := obj[field]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingField, field)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
