package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/stack"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	Root     string
	Config   string
	Timeout  time.Duration
	Runtime  string
	Project  string
	StateDir string
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("root", "", "Stack root (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to the stack file (defaults to stackctl.yaml under root)")
	root.PersistentFlags().Duration("timeout", 10*time.Minute, "Overall deadline for a command")
	root.PersistentFlags().String("runtime", "", "Override the stack file runtime (docker, process, memory)")
	root.PersistentFlags().String("project", "", "Override the compose project name")
	root.PersistentFlags().String("state-dir", "", "Override the process runtime state directory")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	flags := cmd.Root().PersistentFlags()
	root, err := flags.GetString("root")
	if err != nil {
		return rootOptions{}, err
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(root)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}

	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}
	rt, err := flags.GetString("runtime")
	if err != nil {
		return rootOptions{}, err
	}
	project, err := flags.GetString("project")
	if err != nil {
		return rootOptions{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return rootOptions{}, err
	}

	return rootOptions{
		Root:     root,
		Config:   cfgPath,
		Timeout:  timeout,
		Runtime:  rt,
		Project:  project,
		StateDir: stateDir,
	}, nil
}

func loadStack(cmd *cobra.Command, pub events.Publisher) (*stack.Stack, rootOptions, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return nil, opts, err
	}
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}
	s, err := stack.Load(stack.Options{
		Root:       opts.Root,
		ConfigPath: opts.Config,
		Runtime:    opts.Runtime,
		Project:    opts.Project,
		StateDir:   opts.StateDir,
		WrapperExe: exe,
		Publisher:  pub,
	})
	return s, opts, err
}
