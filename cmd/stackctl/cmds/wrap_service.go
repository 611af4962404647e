package cmds

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-go-golems/stackctl/pkg/runtime/process"
	"github.com/go-go-golems/stackctl/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWrapServiceCmd() *cobra.Command {
	var serviceName string
	var cwd string
	var logPath string
	var exitInfoPath string
	var readyFile string
	var envPairs []string
	var tailLines int

	cmd := &cobra.Command{
		Use:    "__wrap-service -- [cmd args...]",
		Short:  "Internal: run a service and record how it exited",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		// The wrapper's own logging would land in the service log.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.Disabled)
			log.Logger = zerolog.New(io.Discard)

			if serviceName == "" {
				return errors.New("missing --service")
			}
			if cwd == "" {
				return errors.New("missing --cwd")
			}
			if logPath == "" {
				return errors.New("missing --log")
			}
			if exitInfoPath == "" {
				return errors.New("missing --exit-info")
			}
			if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
				return errors.Wrap(err, "mkdir log dir")
			}

			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return errors.Wrap(err, "open log")
			}
			defer func() { _ = logFile.Close() }()

			if err := syscall.Setpgid(0, 0); err != nil {
				return errors.Wrap(err, "setpgid")
			}

			child := exec.Command(args[0], args[1:]...) //nolint:gosec
			child.Dir = cwd
			child.Env = process.MergeEnv(os.Environ(), parseEnvPairs(envPairs))
			child.Stdout = logFile
			child.Stderr = logFile

			pgid := os.Getpid()
			child.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}

			sigCh := make(chan os.Signal, 8)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
			defer signal.Stop(sigCh)
			go func() {
				for s := range sigCh {
					_ = syscall.Kill(-pgid, s.(syscall.Signal))
				}
			}()

			if err := child.Start(); err != nil {
				_ = state.WriteExitInfo(exitInfoPath, state.ExitInfo{
					Service:  serviceName,
					ExitedAt: time.Now(),
					Error:    errors.Wrap(err, "start").Error(),
				})
				return errors.Wrap(err, "start child")
			}

			if readyFile != "" {
				_ = os.MkdirAll(filepath.Dir(readyFile), 0o755)
				_ = os.WriteFile(readyFile, []byte(fmt.Sprintf("%d\n", child.Process.Pid)), 0o644)
			}

			info := state.ExitInfoFromWait(serviceName, child.Process.Pid, child.Wait())
			_ = logFile.Sync()
			if tailLines <= 0 {
				tailLines = 25
			}
			if lines, err := state.TailLines(logPath, tailLines, 2<<20); err == nil {
				info.LogTail = lines
			}
			_ = state.WriteExitInfo(exitInfoPath, info)

			if info.ExitCode != nil && *info.ExitCode != 0 {
				return errors.New("wrapped service exited non-zero")
			}
			if info.Signal != "" {
				return errors.New("wrapped service exited by signal")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Service name")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory")
	cmd.Flags().StringVar(&logPath, "log", "", "Combined stdout/stderr log path")
	cmd.Flags().StringVar(&exitInfoPath, "exit-info", "", "Exit info JSON path")
	cmd.Flags().StringVar(&readyFile, "ready-file", "", "Write child PID to this file once started")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "Extra env (KEY=VAL), repeatable")
	cmd.Flags().IntVar(&tailLines, "tail-lines", 25, "How many log lines to record on exit")
	return cmd
}

func parseEnvPairs(pairs []string) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
