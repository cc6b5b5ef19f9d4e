// Package cli holds the pagetags command line: serving, schema setup and
// user and token management.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"pagetags/common"
	"pagetags/config"
	"pagetags/database"
	"pagetags/store"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pagetags",
		Short:         "Personal bookmark and link tagging service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")

	load := func() (*config.AppConfig, error) {
		conf, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return conf, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newInitDBCommand(load),
		newUsersCommand(load),
		newTokensCommand(load),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type configLoader func() (*config.AppConfig, error)

// openStore connects and migrates the database named by conf.
func openStore(conf *config.AppConfig) (*store.Store, *gorm.DB, error) {
	db, err := common.ConnectDb(conf.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	s := store.New(db,
		store.WithBcryptCost(conf.Security.BcryptCost),
		store.WithMaxPerPage(conf.Pagination.MaxPerPage),
	)
	return s, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newInitDBCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			_, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			fmt.Fprintln(cmd.OutOrStdout(), "database initialized")
			return nil
		},
	}
}
