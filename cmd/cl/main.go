package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"courseline/internal/app"
	"courseline/internal/config"
	"courseline/internal/domain"
	"courseline/internal/engine"
	"courseline/internal/repo"
	"courseline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Courseline CLI",
	Long: `Courseline manages a course catalog: courses hold ordered sections, sections hold
ordered lessons, lessons hold ordered content blocks.
- Ordering: siblings always carry dense orders 0..n-1; inserting or moving shifts the others.
- Lifecycle: Draft -> Published -> Archived. A child can only be published under a Published parent,
  and unpublishing or archiving a parent takes its published descendants with it.
- Visibility: students and anonymous callers see only fully published chains.
- Event log: every change is recorded, view with 'cl log tail'.
Commands act as --actor-id, whose roles come from the workspace user store.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("COURSELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "", "user id to act as (empty acts anonymously)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	for _, name := range []string{"workspace", "json", "actor-id", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(courseCmd())
	rootCmd.AddCommand(sectionCmd())
	rootCmd.AddCommand(lessonCmd())
	rootCmd.AddCommand(blockCmd())
	rootCmd.AddCommand(enrollCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(logCmd())
}

func newLogger() (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	if viper.GetString("log-format") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage courseline.yml"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default courseline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "courseline", "catalog name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate courseline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"), log)
			if err != nil {
				return err
			}
			defer ws.Close()
			e := engine.New(ws.DB, ws.Config)
			e.Log = log
			authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt_secret")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("COURSELINE_JWT_SECRET is required for bearer auth")
			}
			if !cmd.Flags().Changed("addr") && ws.Config.Server.Addr != "" {
				addr = ws.Config.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && ws.Config.Server.BasePath != "" {
				basePath = ws.Config.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:      e,
				BasePath:    basePath,
				Auth:        authCfg,
				CORSOrigins: ws.Config.Server.CORSOrigins,
				Log:         log,
			})
			if err != nil {
				return err
			}
			server.StartWebhooks(cmd.Context(), e, log)
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.WithFields(logrus.Fields{"addr": addr, "base_path": basePath}).Info("serving Courseline API (OpenAPI at <base>/openapi.json, Swagger UI at /docs)")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage users, roles and API keys"}
	u.AddCommand(userBootstrapCmd())
	u.AddCommand(userListCmd())
	u.AddCommand(userUpsertCmd())
	u.AddCommand(userRevokeCmd())
	u.AddCommand(userKeyCmd())
	u.AddCommand(userWhoamiCmd())
	return u
}

func userBootstrapCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the first admin of an empty user store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ domain.Principal) error {
				seeded, err := e.Auth.Bootstrap(ctx, id)
				if err != nil {
					return err
				}
				if !seeded {
					return fmt.Errorf("user store is not empty; ask an admin to grant roles instead")
				}
				fmt.Printf("Seeded admin %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "admin user id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				if !p.IsAdmin() {
					return domain.Forbidden("list users")
				}
				users, err := e.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := newTable("ID", "Name", "Email", "Roles")
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.FullName, u.Email, strings.Join(u.Roles, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func userUpsertCmd() *cobra.Command {
	var u domain.User
	var roles []string
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create a user or replace its roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				out, err := e.Auth.UpsertUser(ctx, p, u, roles)
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&u.ID, "id", "", "user id")
	cmd.Flags().StringVar(&u.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email")
	cmd.Flags().StringArrayVar(&roles, "role", []string{}, "role (repeatable): Admin, Instructor, Student")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func userRevokeCmd() *cobra.Command {
	var id, role string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return e.Auth.RevokeRole(ctx, p, id, role)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&role, "role", "", "role")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func userKeyCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Issue an API key; the raw key is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				key, raw, err := e.Auth.IssueAPIKey(ctx, p, id, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": key, "raw": raw})
				}
				fmt.Printf("API key %s for %s:\n%s\n", key.ID, key.UserID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "owner user id")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func userWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the acting principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				return printJSONOrTable(p)
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	tok := &cobra.Command{Use: "token", Short: "Bearer tokens for the HTTP API"}
	var ttl time.Duration
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a token for --actor-id with its stored roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt_secret")
			if secret == "" {
				return fmt.Errorf("COURSELINE_JWT_SECRET is required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				if !p.Authenticated() {
					return fmt.Errorf("--actor-id is required")
				}
				signed, err := server.SignToken(secret, p.UserID, p.Roles, ttl)
				if err != nil {
					return err
				}
				fmt.Println(signed)
				return nil
			})
		},
	}
	mint.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 never expires)")
	tok.AddCommand(mint)
	return tok
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Audit event log"}
	var f repo.EventFilter
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Principal) error {
				items, err := e.ListEvents(ctx, p, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "TS", "Type", "Course", "Entity", "Actor")
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.CourseID, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	tail.Flags().StringVar(&f.CourseID, "course", "", "course id filter")
	tail.Flags().StringVar(&f.Type, "type", "", "event type filter")
	tail.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	tail.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	l.AddCommand(tail)
	return l
}

// --- helpers ---

// withEngine opens the workspace and resolves --actor-id to a principal.
func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, domain.Principal) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	ws, err := app.Open(ctx, viper.GetString("workspace"), log)
	if err != nil {
		return err
	}
	defer ws.Close()
	e := engine.New(ws.DB, ws.Config)
	e.Log = log
	var p domain.Principal
	if actor := strings.TrimSpace(viper.GetString("actor-id")); actor != "" {
		p, err = e.Auth.Principal(ctx, actor)
		if err != nil {
			return err
		}
	}
	return fn(ctx, e, p)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func optionalInt(cmd *cobra.Command, flag string, value int) *int {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
