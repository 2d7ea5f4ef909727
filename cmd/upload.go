package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/upload"
	userPostgres "github.com/frahmantamala/client-portal/internal/user/postgres"
	"github.com/spf13/cobra"
)

var (
	uploadProjectID int64
	uploadAs        string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload local files into a project",
	Long: `Stage local files as one batch for a project and submit it, printing
progress events as JSON lines. Files whose names mark protected content are
encoded and audited exactly as they are over HTTP.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		app, err := newApp(cfg)
		if err != nil {
			log.Fatalf("failed to init app: %v", err)
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := runUpload(ctx, app, args); err != nil {
			app.Close()
			log.Fatal(err)
		}
	},
}

func init() {
	uploadCmd.Flags().Int64VarP(&uploadProjectID, "project", "p", 0, "target project id")
	uploadCmd.Flags().StringVar(&uploadAs, "as", "", "email of the user performing the upload (default: built-in administrator)")
	_ = uploadCmd.MarkFlagRequired("project")
}

func runUpload(ctx context.Context, app *App, paths []string) error {
	holder := session.NewHolder(nil)
	if uploadAs != "" {
		u, err := userPostgres.NewUserRepository(app.DB).GetByEmail(ctx, uploadAs)
		if err != nil {
			return fmt.Errorf("load user %s: %w", uploadAs, err)
		}
		if !u.IsActive {
			return fmt.Errorf("user %s is inactive", uploadAs)
		}
		holder.Replace(u.ToSession())
	}

	actor := holder.Current()
	if !actor.HasPermission(session.PermViewProjects) {
		return fmt.Errorf("user %s cannot upload to projects", actor.Email)
	}
	if err := app.Projects.Exists(uploadProjectID); err != nil {
		return err
	}

	refs := make([]upload.FileRef, 0, len(paths))
	for _, p := range paths {
		ref, err := app.Stager.Adopt(p, mime.TypeByExtension(filepath.Ext(p)))
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		refs = append(refs, ref)
	}

	batch := app.Registry.Get(strconv.FormatInt(uploadProjectID, 10))
	if err := batch.AddCandidates(refs); err != nil {
		return err
	}

	stream, err := batch.Submit(session.WithSession(ctx, actor))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for ev := range stream {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}
