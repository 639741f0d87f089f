// Package clientflags wires the flags shared by commands that talk to a
// running recall server: the API target and the owner scope.
package clientflags

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/client"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/git"
	"github.com/papercomputeco/recall/pkg/memory"
)

var registryKeys = []string{
	config.FlagAPITarget,
	config.FlagUser,
	config.FlagProject,
}

// Options holds the resolved client settings.
type Options struct {
	APITarget string
	UserID    string
	ProjectID string

	// GitProject scopes to the current git repository when no project is
	// configured.
	GitProject bool
}

// Register adds --api-target, --user and --project to cmd.
func (o *Options) Register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &o.APITarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagUser, &o.UserID)
	config.AddStringFlag(cmd, config.Flags, config.FlagProject, &o.ProjectID)
	cmd.Flags().BoolVar(&o.GitProject, "git-project", false, "Use the current git repository name as the project when --project is not set")
}

// Resolve layers flags over RECALL_* env vars, config.toml and defaults.
// Call it from PreRunE.
func (o *Options) Resolve(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, registryKeys)

	cfg := config.FromViper(v)
	o.APITarget = cfg.Client.APITarget
	o.UserID = cfg.Client.UserID
	o.ProjectID = cfg.Client.ProjectID
	if o.ProjectID == "" && o.GitProject {
		o.ProjectID = git.RepoName("")
	}

	if o.UserID == "" {
		return fmt.Errorf("%w: pass --user or run \"recall config set client.user_id <id>\"", memory.ErrMissingOwner)
	}
	return nil
}

// Client builds an API client for the resolved settings.
func (o *Options) Client() (*client.Client, error) {
	return client.New(o.APITarget, memory.OwnerScope{
		UserID:    o.UserID,
		ProjectID: o.ProjectID,
	})
}
