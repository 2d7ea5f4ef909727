package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/frahmantamala/client-portal/internal/audit"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the HIPAA audit log",
}

var (
	auditFilter audit.Filter
	auditSince  string
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print audit entries as JSON lines, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, app *App) error {
			if auditSince != "" {
				since, err := time.Parse(time.RFC3339, auditSince)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				auditFilter.Since = since
			}

			entries, err := app.Audit.List(ctx, auditFilter)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than the configured retention window",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, app *App) error {
			n, err := app.Audit.PruneExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d entries older than %s\n", n, app.Audit.Retention())
			return nil
		})
	},
}

func withApp(fn func(ctx context.Context, app *App) error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	err = fn(context.Background(), app)
	app.Close()
	if err != nil {
		log.Fatal(err)
	}
}

func init() {
	auditListCmd.Flags().StringVar(&auditFilter.UserID, "user", "", "only entries for this user id")
	auditListCmd.Flags().StringVar(&auditFilter.Action, "action", "", "only entries with this action")
	auditListCmd.Flags().StringVar(&auditFilter.ResourceType, "resource-type", "", "only entries for this resource type")
	auditListCmd.Flags().StringVar(&auditFilter.ResourceID, "resource-id", "", "only entries for this resource id")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "only entries at or after this RFC3339 time")
	auditListCmd.Flags().IntVar(&auditFilter.Limit, "limit", 100, "maximum entries to print")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditPruneCmd)
}
