package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_NoSubcommandIsUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 2, run(nil, &out, &errOut))
	require.Contains(t, out.String(), "glslrun")
}

func TestRun_ExecMissingBinary(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"exec", "definitely-not-a-real-binary-xyz"}, &out, &errOut)
	require.Equal(t, 127, code)
	require.Contains(t, errOut.String(), "ERROR:")
}

func TestRun_ExecRequiresPath(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 1, run([]string{"exec"}, &out, &errOut))
}

func TestRun_ToolsReportsMissingToolchain(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	var out, errOut bytes.Buffer
	code := run([]string{"--toolchain-dir", t.TempDir(), "tools"}, &out, &errOut)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "MISSING glslangValidator")
	require.Contains(t, out.String(), "MISSING spirv-remap")
	require.Contains(t, errOut.String(), "toolchain incomplete")
}
