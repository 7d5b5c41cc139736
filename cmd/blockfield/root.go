package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/blockfield/internal/config"
	"github.com/kailas-cloud/blockfield/internal/version"
)

type rootOptions struct {
	configPath string
}

// loadConfig reads --config when given, otherwise config/<ENV>.yaml.
func (o *rootOptions) loadConfig() (config.Config, string, error) {
	env := config.GetEnv()
	if o.configPath != "" {
		cfg, err := config.LoadFile(o.configPath)
		return cfg, env, err
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "blockfield",
		Short: "Typed field extraction and projection for block-structured documents",
		Long: `blockfield reads named, typed attributes out of documents made of nested
content blocks. It keeps a metadata store in sync on every save and answers
field projections from it, re-parsing the document when metadata is stale.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default config/$ENV.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newExtractCmd(),
		newSchemaCmd(),
	)
	return cmd
}
