package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/database"
	"github.com/dhwanilabs/dhwani_backend/pkg/logs"
)

func NewReconcileCommand() *cobra.Command {
	var (
		dryRun    bool
		teacherID string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare teacher ledgers against commission records and repair drift",
		Long: `Reconcile recomputes each teacher's total earnings from the commission
records and compares the result with the ledger. With --dry-run the drift
is reported but not repaired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			slog.SetDefault(logs.New(cfg))

			db, err := database.NewGormDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			opts := finance.ReconcileOptions{DryRun: dryRun}
			if teacherID != "" {
				id, err := uuid.Parse(teacherID)
				if err != nil {
					return fmt.Errorf("invalid --teacher-id: %w", err)
				}
				opts.TeacherID = &id
			}

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 5 * time.Minute
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			svc := finance.New(finance.NewStore(store.New(db)), cfg.Commission, nil, nil, slog.Default())
			report, err := svc.Reconcile(ctx, opts)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			fmt.Printf("Checked %d ledgers, %d with drift.\n", report.Checked, report.DriftCount)
			for _, e := range report.Entries {
				action := "fixed"
				if dryRun {
					action = "would fix"
				}
				fmt.Printf("  teacher %s: ledger=%s expected=%s drift=%s (%s)\n",
					e.TeacherID, e.LedgerEarned, e.ExpectedEarned, e.Drift, action)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report drift without repairing it")
	cmd.Flags().StringVar(&teacherID, "teacher-id", "", "Reconcile a single teacher's ledger")

	return cmd
}
