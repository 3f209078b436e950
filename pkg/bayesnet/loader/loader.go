package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Format identifies a network definition syntax
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

// Definition is a parsed network together with the source it came from
type Definition struct {
	Name    string
	Format  Format
	Source  []byte
	Network *network.Network
}

// SyntaxError reports a problem at a specific line of a network file. It
// matches internalerr.ErrMalformedFile and, when set, the underlying cause.
type SyntaxError struct {
	Path string
	Line int // 0 when the problem is not tied to a line
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:", e.Line)
	}
	if sb.Len() > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *SyntaxError) Unwrap() []error {
	if e.Err == nil {
		return []error{internalerr.ErrMalformedFile}
	}
	return []error{internalerr.ErrMalformedFile, e.Err}
}

// Name derives a network name from a file path: the base name without
// extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FormatFor picks the syntax from the file extension; anything that is not
// .yaml or .yml is read as the text format.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatText
}

// LoadFile reads and parses a network definition file
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	def, err := FromSource(Name(path), FormatFor(path), data)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) && se.Path == "" {
			se.Path = path
		}
		return nil, err
	}
	return def, nil
}

// FromSource parses a definition held in memory, e.g. one read back from a
// store.
func FromSource(name string, format Format, source []byte) (*Definition, error) {
	var (
		net *network.Network
		err error
	)
	switch format {
	case FormatText, "":
		format = FormatText
		net, err = Parse(bytes.NewReader(source))
	case FormatYAML:
		net, err = ParseYAML(source)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", internalerr.ErrMalformedFile, format)
	}
	if err != nil {
		return nil, err
	}

	return &Definition{
		Name:    name,
		Format:  format,
		Source:  source,
		Network: net,
	}, nil
}
