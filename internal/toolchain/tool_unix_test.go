//go:build unix

package toolchain

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"glslang-runner/internal/spawn"
)

func writeScript(t *testing.T, dir, name, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), mode))
}

func TestBinaryTool_RunsExecutableFromDir(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	writeScript(t, dir, GlslangValidatorName, `echo "validated $*"; echo "note" >&2`, 0o755)

	var hostOut, hostErr bytes.Buffer
	runner := spawn.New(spawn.RunnerConfig{Stdout: &hostOut, Stderr: &hostErr, Logger: zap.NewNop().Sugar()})
	tool := NewGlslangValidator(ToolConfig{Dir: dir, Runner: runner})

	var sunk bytes.Buffer
	p, err := tool.Run(spawn.Config{
		Args:   spawn.ArgList{"-G", "-o", "vert.spv", "pass.vert"},
		Stdout: func(chunk []byte) { sunk.Write(chunk) },
	})
	require.NoError(t, err)

	res := p.Wait()
	require.NoError(t, res.Err)
	require.Equal(t, filepath.Join(dir, GlslangValidatorName), res.Path)
	require.Equal(t, "validated -G -o vert.spv pass.vert\n", sunk.String())
	require.Equal(t, "validated -G -o vert.spv pass.vert\n", hostOut.String())
	require.Equal(t, "note\n", hostErr.String())
}

func TestBinaryTool_NonZeroExitFromTool(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	writeScript(t, dir, SpirvRemapName, `echo "error: missing --input" >&2; exit 5`, 0o755)

	runner := spawn.New(spawn.RunnerConfig{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	tool := NewSpirvRemap(ToolConfig{Dir: dir, Runner: runner})

	p, err := tool.Run(spawn.Arg("--do-everything"))
	require.NoError(t, err)

	res := p.Wait()
	require.Equal(t, spawn.NonZeroExit, res.Kind)
	require.Equal(t, 5, *res.ExitCode)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, GlslangValidatorName, "exit 0", 0o755)
	writeScript(t, dir, SpirvRemapName, "exit 0", 0o644)

	require.NoError(t, Check(NewGlslangValidator(ToolConfig{Dir: dir})))
	require.ErrorIs(t, Check(NewSpirvRemap(ToolConfig{Dir: dir})), ErrToolNotExecutable)
}
