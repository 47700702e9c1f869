package tilesplit

import (
	"path/filepath"
	"strings"
)

// Default tile file name suffixes.
const (
	DefaultLeftSuffix  = "-left"
	DefaultRightSuffix = "-right"
)

// DefaultOutputPaths returns <dir>/<stem>-left.jpg and <dir>/<stem>-right.jpg for input.
func DefaultOutputPaths(input string) (string, string) {
	return OutputPaths(input, DefaultLeftSuffix, DefaultRightSuffix)
}

// OutputPaths derives JPEG tile paths next to input using the given stem suffixes.
// An input without a usable stem yields tiles named after "output".
func OutputPaths(input, leftSuffix, rightSuffix string) (string, string) {
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.HasPrefix(base, ".") && filepath.Ext(base) == base {
		// Dot files such as ".jpg" keep their full name as a stem.
		stem = base
	}
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return filepath.Join(dir, stem+leftSuffix+".jpg"), filepath.Join(dir, stem+rightSuffix+".jpg")
}

func isJPEGPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
