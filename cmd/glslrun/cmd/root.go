package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"glslang-runner/config"
	"glslang-runner/internal/logs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"
)

// app is the state shared by subcommands once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	runner *spawn.Runner
	tools  *toolchain.Service
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	// Keep the terminal for the tool's own output unless asked otherwise.
	v.SetDefault("log_level", "warn")

	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "glslrun",
		Short:         "Run glslangValidator and spirv-remap with pass-through output",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errUsage
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.Bool("quiet", false, "Do not mirror tool output to this terminal")
	pf.String("toolchain-dir", "", "Directory holding glslangValidator and spirv-remap (default: build/glslang/StandAlone, then PATH)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	for key, flag := range map[string]string{
		"toolchain.quiet": "quiet",
		"toolchain.dir":   "toolchain-dir",
		"log_level":       "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			// Only fails for a nil flag, which is a programmer error.
			panic(fmt.Errorf("bind flag %s: %w", flag, err))
		}
	}

	rootCmd.AddCommand(
		newToolCmd(a, "validate", toolchain.GlslangValidatorName, "Run glslangValidator"),
		newToolCmd(a, "remap", toolchain.SpirvRemapName, "Run spirv-remap"),
		newExecCmd(a),
		newToolsCmd(a),
	)

	return rootCmd
}

func (a *app) init(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.NewConfig(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zl, err := logs.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger := logs.NewSugaredLogger(zl)

	runner := spawn.New(spawn.RunnerConfig{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: logger,
	})
	toolCfg := toolchain.ToolConfig{
		Dir:    toolchain.ResolveDir(cfg.Toolchain.Dir),
		Runner: runner,
		Logger: logger,
	}
	tools, err := toolchain.NewTools(toolchain.NewToolsParams{Tools: []toolchain.Tool{
		toolchain.NewGlslangValidator(toolCfg),
		toolchain.NewSpirvRemap(toolCfg),
	}})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.runner = runner
	a.tools = toolchain.NewService(tools)
	return nil
}
