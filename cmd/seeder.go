package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/frahmantamala/client-portal/db"
	"github.com/frahmantamala/client-portal/internal/auth"
	messageDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/message"
	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	userDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/client-portal/internal/phi"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/user"
	userPostgres "github.com/frahmantamala/client-portal/internal/user/postgres"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type fixtures struct {
	Permissions []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"permissions"`
	Users []struct {
		Email       string   `yaml:"email"`
		Name        string   `yaml:"name"`
		Password    string   `yaml:"password"`
		Role        string   `yaml:"role"`
		PHIAccess   string   `yaml:"phi_access"`
		Permissions []string `yaml:"permissions"`
	} `yaml:"users"`
	Projects []struct {
		Name        string `yaml:"name"`
		Client      string `yaml:"client"`
		Status      string `yaml:"status"`
		Deadline    string `yaml:"deadline"`
		Description string `yaml:"description"`
	} `yaml:"projects"`
	Conversations []struct {
		Owner       string `yaml:"owner"`
		Counterpart string `yaml:"counterpart"`
		Messages    []struct {
			Key    string    `yaml:"key"`
			Parent string    `yaml:"parent"`
			Sender string    `yaml:"sender"`
			Text   string    `yaml:"text"`
			SentAt time.Time `yaml:"sent_at"`
			Read   bool      `yaml:"read"`
		} `yaml:"messages"`
	} `yaml:"conversations"`
	PHIRecords []struct {
		Owner  string            `yaml:"owner"`
		Fields map[string]string `yaml:"fields"`
	} `yaml:"phi_records"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if cfg.IsProduction() {
			log.Fatal("refusing to seed a production database")
		}

		var fx fixtures
		if err := yaml.Unmarshal(db.Fixtures, &fx); err != nil {
			log.Fatalf("failed to parse fixtures: %v", err)
		}

		app, err := newApp(cfg)
		if err != nil {
			log.Fatalf("failed to init app: %v", err)
		}
		defer app.Close()

		if err := seed(cmd.Context(), app, &fx); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seeding complete")
	},
}

func seed(ctx context.Context, app *App, fx *fixtures) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gdb := app.DB.WithContext(ctx)

	if clearData {
		for _, table := range []string{"messages", "conversations", "project_files", "projects", "phi_records", "user_permissions", "users", "permissions"} {
			if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	for _, p := range fx.Permissions {
		perm := userDatamodel.Permission{Name: p.Name}
		if err := gdb.Where(userDatamodel.Permission{Name: p.Name}).
			Attrs(userDatamodel.Permission{Description: p.Description}).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("permission %s: %w", p.Name, err)
		}
	}

	users := userPostgres.NewUserRepository(app.DB)
	ids := make(map[string]*user.User, len(fx.Users))
	for _, fu := range fx.Users {
		existing, err := users.GetByEmail(ctx, fu.Email)
		if err == nil {
			fmt.Println("user already exists:", fu.Email)
			ids[fu.Email] = existing
			continue
		}
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}

		hash, err := auth.HashPassword(fu.Password, app.Config.Security.BCryptCost)
		if err != nil {
			return err
		}
		u := &user.User{
			Email:        fu.Email,
			Name:         fu.Name,
			PasswordHash: hash,
			Role:         fu.Role,
			PHIAccess:    session.AccessLevel(fu.PHIAccess),
			IsActive:     true,
			Permissions:  fu.Permissions,
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", fu.Email, err)
		}
		ids[fu.Email] = u
		fmt.Println("Seeded user:", fu.Email)
	}

	if seeded, err := hasRows(gdb, &projectDatamodel.Project{}); err != nil || seeded {
		return err
	}

	for _, fp := range fx.Projects {
		deadline, err := time.Parse(time.DateOnly, fp.Deadline)
		if err != nil {
			return fmt.Errorf("project %s: %w", fp.Name, err)
		}
		row := projectDatamodel.Project{
			Name:        fp.Name,
			Client:      fp.Client,
			Status:      fp.Status,
			Deadline:    deadline,
			Description: fp.Description,
			CreatedBy:   userID(ids, "admin@portal.local"),
		}
		if err := gdb.Create(&row).Error; err != nil {
			return fmt.Errorf("project %s: %w", fp.Name, err)
		}
	}
	fmt.Println("Seeded projects:", len(fx.Projects))

	for _, fc := range fx.Conversations {
		counterpart, ok := ids[fc.Counterpart]
		if !ok {
			return fmt.Errorf("conversation counterpart %s is not a seeded user", fc.Counterpart)
		}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			conv := messageDatamodel.Conversation{
				OwnerID:         userID(ids, fc.Owner),
				CounterpartID:   userID(ids, fc.Counterpart),
				CounterpartName: counterpart.Name,
				CounterpartRole: counterpart.Role,
			}
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}

			keys := make(map[string]int64)
			for _, fm := range fc.Messages {
				msg := messageDatamodel.Message{
					ConversationID: conv.ID,
					SenderID:       userID(ids, fm.Sender),
					Text:           fm.Text,
					IsRead:         fm.Read,
					SentAt:         fm.SentAt,
				}
				if fm.Parent != "" {
					parentID, ok := keys[fm.Parent]
					if !ok {
						return fmt.Errorf("message parent %q is not defined earlier in the thread", fm.Parent)
					}
					msg.ParentID = &parentID
				}
				if err := tx.Create(&msg).Error; err != nil {
					return err
				}
				if fm.Key != "" {
					keys[fm.Key] = msg.ID
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("conversation with %s: %w", fc.Counterpart, err)
		}
	}
	fmt.Println("Seeded conversations:", len(fx.Conversations))

	for _, fr := range fx.PHIRecords {
		owner, ok := ids[fr.Owner]
		if !ok {
			return fmt.Errorf("record owner %s is not a seeded user", fr.Owner)
		}
		if _, err := app.PHI.Create(ctx, owner.ToSession(), phi.CreateRecordDTO{Fields: fr.Fields}); err != nil {
			return fmt.Errorf("phi record: %w", err)
		}
	}
	fmt.Println("Seeded PHI records:", len(fx.PHIRecords))

	return nil
}

func hasRows(gdb *gorm.DB, model any) (bool, error) {
	var count int64
	if err := gdb.Model(model).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		fmt.Println("sample content already present; run with --clear to reseed")
	}
	return count > 0, nil
}

func userID(ids map[string]*user.User, email string) string {
	if u, ok := ids[email]; ok {
		return strconv.FormatInt(u.ID, 10)
	}
	return ""
}
