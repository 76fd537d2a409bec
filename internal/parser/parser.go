package parser

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/settle/internal/account"
)

// FileSource reads a batch from a file path.
// Implements the coordinator's Source interface.
type FileSource struct {
	Path string
}

// Load reads, validates and decodes the batch.
func (s FileSource) Load(ctx context.Context) ([]account.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseFile(s.Path)
}

// ParseFile reads and decodes the batch at path.
// The format follows the extension: .json, .yaml or .yml.
func ParseFile(path string) ([]account.Update, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &InputError{Code: ErrCodeNotFound, Message: "input not found", Path: path, Err: err}
	}
	if err != nil {
		return nil, &InputError{Code: ErrCodeUnreadable, Message: "failed to read input", Path: path, Err: err}
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	updates, err := Parse(data, format, filepath.Base(path))
	if err != nil {
		var ie *InputError
		if errors.As(err, &ie) && ie.Path == "" {
			ie.Path = path
		}
		return nil, err
	}
	return updates, nil
}

// Format is a batch encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the batch format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", &InputError{Code: ErrCodeUnsupported, Message: "unsupported input extension (want .json, .yaml or .yml)", Path: path}
	}
}

// Parse validates and decodes a batch held in memory.
// filename is used only for diagnostics.
func Parse(data []byte, format Format, filename string) ([]account.Update, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, &InputError{Code: ErrCodeMalformed, Message: "malformed input", Err: err}
	}

	problems, err := ValidateJSON(jsonData, filename)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &InputError{Code: ErrCodeSchema, Message: "input violates batch schema", Details: problems}
	}

	var updates []account.Update
	if err := json.Unmarshal(jsonData, &updates); err != nil {
		return nil, &InputError{Code: ErrCodeMalformed, Message: "failed to decode updates", Err: err}
	}
	for i := range updates {
		updates[i].ID = norm.NFC.String(updates[i].ID)
		updates[i].Type = norm.NFC.String(updates[i].Type)
	}
	if updates == nil {
		updates = []account.Update{}
	}
	return updates, nil
}

// toJSON converts a YAML document to JSON; JSON passes through after a syntax check.
func toJSON(data []byte, format Format) ([]byte, error) {
	if format == FormatJSON {
		if !json.Valid(data) {
			var v any
			return nil, json.Unmarshal(data, &v)
		}
		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = []any{}
	}
	return json.Marshal(doc)
}
