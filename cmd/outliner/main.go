package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"outliner-cli/internal/cli"
)

func isPageID(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "page-") {
		return false
	}
	return len(s) > len("page-")
}

// rewriteDirectPageArgs turns `outliner <page-id>` into `outliner --page <page-id>`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before parsing.
// Persistent flags may come first (`outliner --data-dir x page-abc`), so we look for the first
// positional token rather than argv[1].
func rewriteDirectPageArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--data-dir":  true,
		"--server":    true,
		"--page":      true,
		"--format":    true,
		"--log-level": true,
		"--log-file":  true,
	}

	rewrite := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "--page", strings.TrimSpace(argv[i]))
		out = append(out, argv[i+1:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isPageID(argv[i+1]) {
				// Flags after "--" are not parsed, so drop the separator.
				out := make([]string, 0, len(argv)+1)
				out = append(out, argv[:i]...)
				out = append(out, "--page", strings.TrimSpace(argv[i+1]))
				out = append(out, argv[i+2:]...)
				return out
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}
		if isPageID(a) {
			return rewrite(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectPageArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
