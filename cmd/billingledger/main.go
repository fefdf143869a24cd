package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingledger/internal/clock"
	"github.com/smallbiznis/billingledger/internal/config"
	"github.com/smallbiznis/billingledger/internal/migration"
	"github.com/smallbiznis/billingledger/internal/observability"
	"github.com/smallbiznis/billingledger/internal/seed"
	"github.com/smallbiznis/billingledger/internal/server"
	"github.com/smallbiznis/billingledger/internal/transaction/repository"
	"github.com/smallbiznis/billingledger/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "billingledger",
		Short:   "Billing transaction ledger",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(allCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the transaction listing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				infrastructure(),
				server.Module,
			).Run()
			return nil
		},
	}
}

func allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Apply migrations, then serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				infrastructure(),
				migration.Module,
				server.Module,
			).Run()
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), migration.Module)
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		tenant string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a demo billing history for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := seed.Options{Count: count}
			if tenant != "" {
				id, err := snowflake.ParseString(tenant)
				if err != nil {
					return fmt.Errorf("invalid tenant %q: %w", tenant, err)
				}
				opts.TenantID = id
			}

			return runOnce(cmd.Context(),
				migration.Module,
				clock.Module,
				fx.Provide(RegisterSnowflake),
				fx.Provide(repository.Provide),
				fx.Provide(seed.New),
				fx.Invoke(func(s *seed.Seeder, log *zap.Logger) error {
					res, err := s.Seed(cmd.Context(), opts)
					if err != nil {
						return err
					}
					log.Info("seed complete",
						zap.String("tenant_id", res.TenantID.String()),
						zap.Int("written", res.Total()),
						zap.Int("skipped", res.Skipped),
					)
					return nil
				}),
			)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (generated when empty)")
	cmd.Flags().IntVarP(&count, "count", "n", seed.DefaultCount, "records per source")

	return cmd
}

// runOnce starts the infrastructure plus opts, letting invokes do their work,
// then stops it.
func runOnce(ctx context.Context, opts ...fx.Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app := fx.New(append([]fx.Option{infrastructure()}, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(ctx)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
