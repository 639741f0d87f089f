// Package initcmder provides the init command for initializing a local
// .recall directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const (
	dirName = ".recall"
)

const initLongDesc string = `Initialize a new .recall/ directory in the current working directory.

Creates a local .recall/ directory that takes precedence over the default
~/.recall/ directory, and writes a config.toml from the chosen preset.
An existing config.toml is kept unless --force is given.

Presets:
  local      sqlite-vec store and Ollama embeddings (default)
  openai     sqlite-vec store and OpenAI embeddings
  postgres   pgvector store and Ollama embeddings
  qdrant     Qdrant store and Ollama embeddings

Examples:
  recall init
  recall init --preset qdrant
  recall init --preset openai --force`

const initShortDesc string = "Initialize a local .recall/ directory"

func NewInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return runInit(filepath.Join(cwd, dirName), preset, force)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "local",
		"Configuration preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func runInit(dir, preset string, force bool) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .recall directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if _, err := os.Stat(target); err == nil && !force {
		fmt.Printf("\n  %s %s\n\n", cliui.DimStyle.Render("Already initialized:"), target)
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("\n  %s Initialized %s %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(dir),
		cliui.DimStyle.Render("(preset: "+preset+")"),
	)
	return nil
}
