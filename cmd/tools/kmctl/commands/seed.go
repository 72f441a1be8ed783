package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/config"
	"kredmitra/internal/common/database"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/store"
)

func seedCmd() *cobra.Command {
	var (
		configPath string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo user population into Postgres and Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log := logger.NewStructured(cfg.Logging.Level, "console")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()
			rdb, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			users := store.NewUsers(pg, rdb, time.Duration(cfg.Database.Redis.UserTTL)*time.Second, log)
			if err := users.Migrate(ctx); err != nil {
				return err
			}
			seeder := store.NewSeeder(users, store.NewChats(rdb), rdb, auth.NewHasher(cfg.Auth.BcryptCost), log)
			seeded, err := seeder.Seed(ctx, force)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "demo users seeded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already seeded; use --force to reset")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml lookup)")
	cmd.Flags().BoolVar(&force, "force", false, "reseed even if the marker is set")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
