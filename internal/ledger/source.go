package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnknownFormat is returned when no source is registered for a format.
var ErrUnknownFormat = errors.New("unknown source format")

// Source parses record files into a dataset
type Source interface {
	Parse(path string) (Dataset, error)
}

// SourceFunc is a function that implements Source
type SourceFunc func(path string) (Dataset, error)

func (f SourceFunc) Parse(path string) (Dataset, error) {
	return f(path)
}

// sources is the registry of available formats
var sources = map[string]Source{}

// extensions maps file extensions to the format used when no prefix is given
var extensions = map[string]string{}

// RegisterSource registers a source with the given format name, used for files
// with any of the given extensions when no format prefix is given.
func RegisterSource(name string, s Source, exts ...string) {
	sources[name] = s
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = name
	}
}

// GetSource returns the source for the given format
func GetSource(format string) (Source, error) {
	s, ok := sources[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownFormat, format, AvailableSources())
	}
	return s, nil
}

// AvailableSources returns the registered formats, sorted
func AvailableSources() []string {
	var names []string
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsKnownSource returns true if the name is a registered format
func IsKnownSource(name string) bool {
	_, ok := sources[name]
	return ok
}

// DetectFormat picks a format from the file extension. Returns "" if none matches.
func DetectFormat(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFileArg parses a file argument that may have a format prefix.
// Returns (format, path). If no valid prefix, format is empty.
// Example: "yaml:records.txt" → ("yaml", "records.txt")
// Example: "records.json" → ("", "records.json")
// Example: "C:\path\file.xlsx" → ("", "C:\path\file.xlsx") // Windows path
func ParseFileArg(arg string) (format, path string) {
	idx := strings.Index(arg, ":")
	if idx == -1 {
		return "", arg
	}
	prefix := arg[:idx]
	if IsKnownSource(prefix) {
		return prefix, arg[idx+1:]
	}
	return "", arg // Not a known format, treat whole thing as path
}

// ResolveFileArg returns the format and path for a file argument: the prefix if
// present, else the format matching the extension, else defaultFormat.
func ResolveFileArg(arg, defaultFormat string) (format, path string) {
	format, path = ParseFileArg(arg)
	if format == "" {
		format = DetectFormat(path)
	}
	if format == "" {
		format = defaultFormat
	}
	return format, path
}

func init() {
	RegisterSource("json", SourceFunc(ParseJSON), ".json")
	RegisterSource("yaml", SourceFunc(ParseYAML), ".yaml", ".yml")
	RegisterSource("subscriptions-xlsx", SourceFunc(ParseSubscriptionsXLSX), ".xlsx")
}
