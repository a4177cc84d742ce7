// Package dataset reads valuation data sets from JSON, HJSON and YAML documents.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v2"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

// Format is a supported document format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHJSON Format = "hjson"
	FormatYAML  Format = "yaml"
)

// ErrDecode wraps every failure to turn a document into a data set.
var ErrDecode = errors.New("invalid data set document")

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".hjson":
		return FormatHJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported data set file extension %q", filepath.Ext(path))
	}
}

// ParseFormat validates a format name; the empty string means JSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatHJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported data set format %q", name)
	}
}

// Load reads a data set from disk, choosing the format by extension.
func Load(path string) (models.DataSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return models.DataSet{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.DataSet{}, fmt.Errorf("failed to read data set %s: %w", path, err)
	}
	ds, err := Decode(data, format)
	if err != nil {
		return models.DataSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode parses a single data set.
//
// JSON input that does not parse is passed through json-repair once (trailing
// commas, single quotes, unquoted keys, code fences) before giving up.
func Decode(data []byte, format Format) (models.DataSet, error) {
	var ds models.DataSet
	if err := decodeInto(stripFence(data), format, &ds); err != nil {
		return models.DataSet{}, err
	}
	return ds, nil
}

// DecodeMany parses a list of data sets, or a single data set as a list of one.
func DecodeMany(data []byte, format Format) ([]models.DataSet, error) {
	data = stripFence(data)

	var list []models.DataSet
	if err := decodeInto(data, format, &list); err == nil {
		return list, nil
	}
	ds, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return []models.DataSet{ds}, nil
}

func decodeInto(data []byte, format Format, out interface{}) error {
	switch format {
	case FormatJSON, "":
		return decodeJSON(data, out)
	case FormatHJSON:
		return decodeHJSON(data, out)
	case FormatYAML:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: yaml: %v", ErrDecode, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
	}
}

func decodeJSON(data []byte, out interface{}) error {
	err := json.Unmarshal(data, out)
	if err == nil {
		return nil
	}
	repaired, repairErr := jsonrepair.RepairJSON(string(data))
	if repairErr != nil {
		return fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	if err2 := json.Unmarshal([]byte(repaired), out); err2 != nil {
		return fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	return nil
}

// HJSON is decoded to generic values and re-encoded as JSON so that the
// year-keyed maps go through encoding/json's integer key handling.
func decodeHJSON(data []byte, out interface{}) error {
	var generic interface{}
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("%w: hjson: %v", ErrDecode, err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("%w: hjson: %v", ErrDecode, err)
	}
	if err := json.Unmarshal(asJSON, out); err != nil {
		return fmt.Errorf("%w: hjson: %v", ErrDecode, err)
	}
	return nil
}

// stripFence removes one outer ``` code fence, as found in pasted Markdown.
func stripFence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) || !bytes.HasSuffix(trimmed, []byte("```")) || len(trimmed) < 6 {
		return data
	}
	body := trimmed[3 : len(trimmed)-3]
	// drop the info string (```json)
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 && !bytes.ContainsAny(body[:nl], "{[:") {
		body = body[nl+1:]
	}
	return bytes.TrimSpace(body)
}
