package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"glslang-runner/internal/envutil"
)

var (
	ErrToolMissing       = errors.New("toolchain executable not found")
	ErrToolNotExecutable = errors.New("toolchain path is not an executable file")
)

// StandAloneDir is where a glslang build places its stand-alone executables,
// relative to the project root.
var StandAloneDir = filepath.Join("build", "glslang", "StandAlone")

// ResolveDir picks the directory holding the toolchain executables:
// explicit, then <project root>/build/glslang/StandAlone when it exists.
// An empty result means PATH lookup.
func ResolveDir(explicit string) string {
	if clean := strings.TrimSpace(explicit); clean != "" {
		return clean
	}

	root := envutil.String(os.Getenv, "GLSLANG_ROOT", "")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil || strings.TrimSpace(wd) == "" {
			return ""
		}
		root = findProjectRootFrom(wd)
	}
	if root == "" {
		return ""
	}

	dir := filepath.Join(root, StandAloneDir)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// Check reports whether the tool's executable is present and runnable.
func Check(t Tool) error {
	path := t.Path()
	if !strings.ContainsRune(path, filepath.Separator) {
		found, err := exec.LookPath(path)
		if err != nil {
			return fmt.Errorf("%w: %s not on PATH", ErrToolMissing, path)
		}
		path = found
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrToolMissing, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrToolNotExecutable, path)
	}
	return nil
}

func findProjectRootFrom(start string) string {
	current := filepath.Clean(start)
	for {
		if fileExists(filepath.Join(current, "go.mod")) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
