// Package host provides a filesystem-backed implementation of
// parser.HostHooks: it resolves a logical import name to an absolute path
// under the main file's directory, with a library search-path fallback,
// and answers the compile-time conditional queries against the running
// process.
package host

import (
	"os"
	"path/filepath"
	"runtime"
)

// FS resolves `import` targets against a main file's directory plus a list
// of library search directories, and answers the `@if` compile-time
// queries against the running process.
type FS struct {
	BaseDir     string
	LibDirs     []string
	DebugBuild  bool
	PlatformTag string
}

// New creates a host rooted at the directory containing the main entry
// file, searching libDirs (in order) for bare library names.
func New(mainFile string, libDirs ...string) *FS {
	return &FS{
		BaseDir:     filepath.Dir(mainFile),
		LibDirs:     libDirs,
		PlatformTag: runtime.GOOS,
	}
}

// ResolvePath turns a logical import name into an absolute file path: a
// name ending in ".luma" or starting with "./"/"../" resolves relative to
// BaseDir; any other name is searched for across LibDirs as "<dir>/<name>.luma".
func (h *FS) ResolvePath(logicalName string) (string, bool) {
	if filepath.Ext(logicalName) == ".luma" || hasRelativePrefix(logicalName) {
		abs, err := filepath.Abs(filepath.Join(h.BaseDir, logicalName))
		if err != nil {
			return "", false
		}
		return abs, true
	}
	for _, dir := range h.LibDirs {
		candidate := filepath.Join(dir, logicalName+".luma")
		if _, err := os.Stat(candidate); err == nil {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", false
			}
			return abs, true
		}
	}
	return "", false
}

func hasRelativePrefix(name string) bool {
	return len(name) >= 2 && name[0] == '.' && (name[1] == '/' || (len(name) >= 3 && name[1] == '.' && name[2] == '/'))
}

// OpenFile reads path's full contents.
func (h *FS) OpenFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// AnalysePath reports whether path exists and is a regular file, backing
// `@if(exists="...")`.
func (h *FS) AnalysePath(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Platform backs `@if(platform="...")`.
func (h *FS) Platform() string { return h.PlatformTag }

// Debug backs `@if(debug=...)`.
func (h *FS) Debug() bool { return h.DebugBuild }
