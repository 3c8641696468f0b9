package main

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/config"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errors.New("the memory driver has no schema to migrate")
			}

			// Opening a SQL store applies pending migrations.
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			log.WithFields(log.Fields{"driver": cfg.Database.Driver}).Info("migrations applied")
			return nil
		},
	}
}
