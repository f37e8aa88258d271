package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
)

// Loaded is a decoded collection plus the number of entries skipped as
// malformed (invalid JSON lines, non-object entries, undecodable fields).
type Loaded[T any] struct {
	Items   []T
	Skipped int
}

// LoadComments reads a comment collection from a JSON array or JSONL file.
func LoadComments(path string) (Loaded[Comment], error) {
	return loadFile[Comment](path, CommentFields)
}

// LoadVideos reads a video collection.
func LoadVideos(path string) (Loaded[Video], error) {
	return loadFile[Video](path, VideoFields)
}

// LoadCreators reads a creator collection.
func LoadCreators(path string) (Loaded[Creator], error) {
	return loadFile[Creator](path, CreatorFields)
}

// LoadMappings reads a comment→video mapping collection.
func LoadMappings(path string) (Loaded[Mapping], error) {
	return loadFile[Mapping](path, MappingFields)
}

// ParseComments decodes comments from memory. source names the input in
// error messages.
func ParseComments(data []byte, source string) (Loaded[Comment], error) {
	return parse[Comment](data, source, CommentFields)
}

// ParseVideos decodes videos from memory.
func ParseVideos(data []byte, source string) (Loaded[Video], error) {
	return parse[Video](data, source, VideoFields)
}

// ParseCreators decodes creators from memory.
func ParseCreators(data []byte, source string) (Loaded[Creator], error) {
	return parse[Creator](data, source, CreatorFields)
}

// ParseMappings decodes mappings from memory.
func ParseMappings(data []byte, source string) (Loaded[Mapping], error) {
	return parse[Mapping](data, source, MappingFields)
}

func loadFile[T any](path string, required []string) (Loaded[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded[T]{}, fmt.Errorf("read file %s: %w", path, err)
	}
	return parse[T](data, path, required)
}

// parse accepts a JSON array or one object per line. Entries that fail to
// decode are skipped with a warning and counted; an empty input or a
// required field absent from every object is fatal.
func parse[T any](data []byte, source string, required []string) (Loaded[T], error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Loaded[T]{}, fmt.Errorf("%s: %w", source, internalerr.ErrEmptyInput)
	}

	var out Loaded[T]
	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return Loaded[T]{}, fmt.Errorf("%s: decode array: %w: %v", source, internalerr.ErrInvalidInput, err)
		}
	} else {
		for i, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !json.Valid([]byte(line)) {
				slog.Warn("[Records] Skipping malformed JSON line",
					slog.String("source", source),
					slog.Int("line", i+1))
				out.Skipped++
				continue
			}
			raws = append(raws, json.RawMessage(line))
		}
	}

	seen := make(map[string]bool, len(required))
	out.Items = make([]T, 0, len(raws))
	for i, raw := range raws {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			slog.Warn("[Records] Skipping non-object entry",
				slog.String("source", source),
				slog.Int("index", i))
			out.Skipped++
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			slog.Warn("[Records] Skipping malformed record",
				slog.String("source", source),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			out.Skipped++
			continue
		}
		for k := range fields {
			seen[k] = true
		}
		out.Items = append(out.Items, item)
	}

	if len(out.Items) == 0 {
		return Loaded[T]{}, fmt.Errorf("%s: no valid records: %w", source, internalerr.ErrEmptyInput)
	}

	var missing []string
	for _, f := range required {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Loaded[T]{}, fmt.Errorf("%s: required field(s) %s absent from every record: %w",
			source, strings.Join(missing, ", "), internalerr.ErrInvalidInput)
	}

	if out.Skipped > 0 {
		slog.Warn("[Records] Malformed entries skipped",
			slog.String("source", source),
			slog.Int("skipped", out.Skipped),
			slog.Int("loaded", len(out.Items)))
	}
	return out, nil
}
