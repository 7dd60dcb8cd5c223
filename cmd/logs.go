// -- cmd/logs.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hpcloud/tail"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the log file, optionally following it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Logger().LogFile == "" {
				return errors.New("file logging is disabled (logger.log_file is empty)")
			}
			path, err := homedir.Expand(cfg.Logger().LogFile)
			if err != nil {
				return err
			}

			lines, _ := cmd.Flags().GetInt("lines")
			follow, _ := cmd.Flags().GetBool("follow")
			return printLogTail(cmd.Context(), path, lines, follow, cmd.OutOrStdout())
		},
	}
	logsCmd.Flags().IntP("lines", "n", 50, "number of trailing lines to print (0 for all)")
	logsCmd.Flags().BoolP("follow", "f", false, "keep printing lines as they are appended")
	return logsCmd
}

// printLogTail writes the last n lines of path, then streams new lines until
// ctx is done when follow is set.
func printLogTail(ctx context.Context, path string, n int, follow bool, out io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}

	last, err := readLastLines(path, n)
	if err != nil {
		return err
	}
	for _, line := range last {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: info.Size(), Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow log file: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}

// readLastLines reads the whole file once and keeps the trailing n lines.
func readLastLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{MustExist: true, Logger: tail.DiscardingLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	defer t.Cleanup()

	var lines []string
	for line := range t.Lines {
		if line.Err != nil {
			return nil, line.Err
		}
		lines = append(lines, line.Text)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, nil
}
