package toolchain

import (
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"glslang-runner/internal/spawn"
)

const (
	GlslangValidatorName = "glslangValidator"
	SpirvRemapName       = "spirv-remap"
)

// Tool runs one glslang executable through the process runner.
type Tool interface {
	Name() string
	Path() string
	Run(opts spawn.Options) (*spawn.Pending, error)
}

type ToolConfig struct {
	// Dir is the directory holding the executables. Empty means the
	// executable is looked up on PATH.
	Dir    string
	Runner *spawn.Runner
	Logger *zap.SugaredLogger
}

// BinaryTool pins an executable path and forwards options unchanged.
type BinaryTool struct {
	name   string
	path   string
	runner *spawn.Runner
	logger *zap.SugaredLogger
}

func NewGlslangValidator(cfg ToolConfig) *BinaryTool {
	return newBinaryTool(GlslangValidatorName, cfg)
}

func NewSpirvRemap(cfg ToolConfig) *BinaryTool {
	return newBinaryTool(SpirvRemapName, cfg)
}

func newBinaryTool(name string, cfg ToolConfig) *BinaryTool {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = spawn.New(spawn.RunnerConfig{Logger: logger})
	}
	return &BinaryTool{
		name:   name,
		path:   binaryPath(cfg.Dir, name),
		runner: runner,
		logger: logger,
	}
}

func (t *BinaryTool) Name() string { return t.name }

func (t *BinaryTool) Path() string { return t.path }

func (t *BinaryTool) Run(opts spawn.Options) (*spawn.Pending, error) {
	t.logger.Debugw("toolchain_run", "tool", t.name, "path", t.path)
	return t.runner.Run(t.path, opts)
}

func binaryPath(dir, name string) string {
	if clean := strings.TrimSpace(dir); clean != "" {
		return filepath.Join(clean, name)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}
