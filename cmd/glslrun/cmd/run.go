package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"
)

func newToolCmd(a *app, use, toolName, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " [-- tool args...]",
		Short: short,
		Long: short + ".\n\nEverything after the first tool argument is passed through unchanged; " +
			"put -- before the arguments when the first one starts with a dash.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.tools.Run(toolName, a.options(args))
			if err != nil {
				return err
			}
			return a.wait(p)
		},
	}
	c.Flags().SetInterspersed(false)
	return c
}

func newExecCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "exec <path> [args...]",
		Short: "Run any executable the way the toolchain wrappers do",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				_ = cmd.Help()
				return errUsage
			}
			p, err := a.runner.Run(args[0], a.options(args[1:]))
			if err != nil {
				return err
			}
			return a.wait(p)
		},
	}
	c.Flags().SetInterspersed(false)
	return c
}

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check that every toolchain executable is present and runnable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var missing []string
			for _, name := range a.tools.Names() {
				t, err := a.tools.Tool(name)
				if err != nil {
					return err
				}
				if err := toolchain.Check(t); err != nil {
					fmt.Fprintf(out, "MISSING %-18s %v\n", name, err)
					missing = append(missing, name)
					continue
				}
				fmt.Fprintf(out, "OK      %-18s %s\n", name, t.Path())
			}
			if len(missing) > 0 {
				return fmt.Errorf("toolchain incomplete: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func (a *app) options(args []string) spawn.Options {
	return spawn.Config{
		Args:  spawn.ArgList(args),
		Quiet: a.cfg.Toolchain.Quiet,
	}
}

// wait blocks until the child settles. Interrupts are left to the child,
// which shares the terminal's process group.
func (a *app) wait(p *spawn.Pending) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	res := p.Wait()
	if res.Err == nil {
		return nil
	}

	var pErr *spawn.ProcessError
	if !errors.As(res.Err, &pErr) {
		return res.Err
	}
	switch pErr.Kind {
	case spawn.SpawnFailure:
		return &exitCodeError{code: 127, err: res.Err}
	case spawn.NonZeroExit:
		return &exitCodeError{code: pErr.Code(), err: res.Err}
	case spawn.AbnormalTermination:
		if n := pErr.SignalNumber(); n > 0 {
			return &exitCodeError{code: 128 + n, err: res.Err}
		}
		return &exitCodeError{code: 1, err: res.Err}
	default:
		return &exitCodeError{code: 1, err: res.Err}
	}
}
