package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BatchPolicy decides what happens to invalid entries of a bulk import.
type BatchPolicy string

const (
	// SkipInvalid drops invalid entries and inserts the rest.
	SkipInvalid BatchPolicy = "skip_invalid"
	// RejectAll refuses the whole batch when any entry is invalid.
	RejectAll BatchPolicy = "reject_all"
)

func ParseBatchPolicy(value string) (BatchPolicy, error) {
	switch BatchPolicy(value) {
	case "", SkipInvalid:
		return SkipInvalid, nil
	case RejectAll:
		return RejectAll, nil
	default:
		return "", fmt.Errorf("unknown batch policy %q", value)
	}
}

// TestCandidate is one entry of a test payload. Err is set when the entry
// could not be decoded into a TestInput at all.
type TestCandidate struct {
	Input TestInput
	Err   error
}

func (c TestCandidate) Validate() error {
	if c.Err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, c.Err)
	}
	return c.Input.Validate()
}

// TestPayload is either a single test object or a batch of them.
type TestPayload struct {
	Batch      bool
	Candidates []TestCandidate
}

func SinglePayload(input TestInput) TestPayload {
	return TestPayload{Candidates: []TestCandidate{{Input: input}}}
}

func BatchPayload(inputs []TestInput) TestPayload {
	candidates := make([]TestCandidate, 0, len(inputs))
	for _, input := range inputs {
		candidates = append(candidates, TestCandidate{Input: input})
	}
	return TestPayload{Batch: true, Candidates: candidates}
}

// ParseTestPayload decodes a test file. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON.
func ParseTestPayload(filename string, data []byte) (TestPayload, error) {
	var payload TestPayload
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return TestPayload{}, fmt.Errorf("decode %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &payload); err != nil {
			return TestPayload{}, fmt.Errorf("decode %s: %w", filename, err)
		}
	}
	if len(payload.Candidates) == 0 && !payload.Batch {
		return TestPayload{}, fmt.Errorf("decode %s: file is empty", filename)
	}
	return payload, nil
}

// MarshalJSON writes the payload back in its wire shape. Entries that failed
// to decode are sent as null so the server still counts them as invalid.
func (p TestPayload) MarshalJSON() ([]byte, error) {
	if !p.Batch {
		if len(p.Candidates) == 0 {
			return []byte("null"), nil
		}
		return json.Marshal(p.Candidates[0].Input)
	}

	entries := make([]*TestInput, 0, len(p.Candidates))
	for idx := range p.Candidates {
		if p.Candidates[idx].Err != nil {
			entries = append(entries, nil)
			continue
		}
		entries = append(entries, &p.Candidates[idx].Input)
	}
	return json.Marshal(entries)
}

func (p TestPayload) InvalidCount() int {
	count := 0
	for _, candidate := range p.Candidates {
		if candidate.Validate() != nil {
			count++
		}
	}
	return count
}

func (p *TestPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty test payload")
	}

	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return err
		}
		p.Batch = true
		p.Candidates = make([]TestCandidate, 0, len(elements))
		for _, element := range elements {
			var candidate TestCandidate
			candidate.Err = decodeStrictObject(element, &candidate.Input)
			p.Candidates = append(p.Candidates, candidate)
		}
		return nil
	case '{':
		var input TestInput
		if err := json.Unmarshal(trimmed, &input); err != nil {
			return err
		}
		p.Batch = false
		p.Candidates = []TestCandidate{{Input: input}}
		return nil
	default:
		return errors.New("test payload must be an object or an array of objects")
	}
}

func (p *TestPayload) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	switch node.Kind {
	case yaml.SequenceNode:
		p.Batch = true
		p.Candidates = make([]TestCandidate, 0, len(node.Content))
		for _, element := range node.Content {
			var candidate TestCandidate
			if element.Kind != yaml.MappingNode {
				candidate.Err = errors.New("entry is not a mapping")
			} else {
				candidate.Err = element.Decode(&candidate.Input)
			}
			p.Candidates = append(p.Candidates, candidate)
		}
		return nil
	case yaml.MappingNode:
		var input TestInput
		if err := node.Decode(&input); err != nil {
			return err
		}
		p.Batch = false
		p.Candidates = []TestCandidate{{Input: input}}
		return nil
	default:
		return errors.New("test payload must be a mapping or a sequence of mappings")
	}
}

func decodeStrictObject(data json.RawMessage, input *TestInput) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("entry is not an object")
	}
	return json.Unmarshal(trimmed, input)
}
