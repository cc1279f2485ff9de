package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/ppmsteg/internal/config"
	"github.com/muurk/ppmsteg/internal/ui"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the ppmsteg config file",
		Long: `Create, show and locate the YAML config file holding preferences,
server defaults and what ppmsteg remembers about carrier images.

Message text is never written to the config file.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.resolvedConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a config file with default values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.resolvedConfigPath()
				if err != nil {
					return err
				}
				if err := config.CreateDefaultConfig(path); err != nil {
					return a.fail("Config not created", err)
				}
				a.out.PrintSuccess("Config created", ui.Detail{Key: "Path", Value: path})
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.registry)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "forget <image.ppm>",
			Short: "Remove an image from the config file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := filepath.Abs(args[0])
				if err != nil {
					key = args[0]
				}
				if a.registry.GetImage(key) == nil {
					return fmt.Errorf("no record for %s", key)
				}
				a.registry.ForgetImage(key)
				a.saveRegistry()
				a.out.PrintSuccess("Image forgotten", ui.Detail{Key: "Path", Value: key})
				return nil
			},
		},
	)

	return cmd
}
