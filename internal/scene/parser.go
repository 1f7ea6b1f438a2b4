package scene

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Parser reads one model file format.
type Parser interface {
	// Parse reads the file at path. It returns an error wrapping
	// ErrParseFailed when no scene could be produced.
	Parse(path string) (*Scene, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path string) (*Scene, error)

func (f ParserFunc) Parse(path string) (*Scene, error) {
	return f(path)
}

var parsers = map[string]Parser{
	".obj":  ParserFunc(ParseOBJ),
	".gltf": ParserFunc(ParseGLTF),
	".glb":  ParserFunc(ParseGLTF),
}

// Extensions returns the file extensions ParseFile understands.
func Extensions() []string {
	exts := make([]string, 0, len(parsers))
	for ext := range parsers {
		exts = append(exts, ext)
	}
	return exts
}

// Default picks a parser by file extension.
var Default Parser = ParserFunc(parseByExtension)

func parseByExtension(path string) (*Scene, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported format %q", ErrParseFailed, path, ext)
	}
	return p.Parse(path)
}

// ParseFile parses path with the parser registered for its extension and
// applies flags.
func ParseFile(path string, flags PostProcess) (*Scene, error) {
	return ParseWith(Default, path, flags)
}

// ParseWith parses path with p and applies flags. A parser returning neither
// a scene nor an error is reported as ErrParseFailed.
func ParseWith(p Parser, path string, flags PostProcess) (*Scene, error) {
	s, err := p.Parse(path)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s: parser returned no scene", ErrParseFailed, path)
	}
	s.apply(flags)
	return s, nil
}
