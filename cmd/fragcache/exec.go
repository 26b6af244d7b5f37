package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fragcache/cache"
)

// ConditionsEnv carries the canonical conditions to producer commands.
const ConditionsEnv = "FRAGCACHE_CONDITIONS"

func (c *cli) newExecCmd() *cobra.Command {
	var (
		conds    []string
		refresh  bool
		noRender bool
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARGS...]",
		Short: "Serve a command's output from the cache",
		Long: "exec prints the cached fragment for the given conditions. On a miss it runs\n" +
			"COMMAND, stores its stdout and prints it. The conditions are exported to the\n" +
			"command as canonical JSON in " + ConditionsEnv + ".",
		Example: `fragcache exec -n sidebar --cond page=2 --cond locale=en -- ./render-sidebar.sh`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conditions, err := parseConditions(conds)
			if err != nil {
				return err
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			f, _ := a.Fragment(c.namespace)
			var opts []cache.RunOption
			if refresh {
				opts = append(opts, cache.Refresh())
			}
			if noRender {
				opts = append(opts, cache.NoRender())
			}

			_, err = f.Run(cmd.Context(), commandProducer(args, cmd.ErrOrStderr()), conditions, opts...)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&conds, "cond", nil, "condition as key=value (repeatable)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "run the command even on a hit and replace the entry")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "store without printing")
	return cmd
}

// commandProducer runs argv with stdout captured into the fragment.
func commandProducer(argv []string, stderr io.Writer) cache.Producer {
	return func(ctx context.Context, w io.Writer, c cache.Conditions) error {
		canonical, err := cache.Canonicalize(c)
		if err != nil {
			return err
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = w
		cmd.Stderr = stderr
		cmd.Env = append(os.Environ(), ConditionsEnv+"="+string(canonical))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("producer %s: %w", argv[0], err)
		}
		return nil
	}
}

// parseConditions turns key=value pairs into conditions. Integer and
// true/false values keep their type; everything else is a string.
func parseConditions(pairs []string) (cache.Conditions, error) {
	c := make(cache.Conditions, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid condition %q: want key=value", p)
		}
		c[k] = parseValue(v)
	}
	return c, nil
}

func parseValue(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
