package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coroner/internal/config"
	"coroner/internal/db"
	"coroner/internal/domain"
	"coroner/internal/engine"
	"coroner/internal/migrate"
	"coroner/internal/repo"
	"coroner/internal/server"
	"coroner/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "cor",
	Short: "Coroner CLI",
	Long: `Coroner manages forensic post-mortem examination reports.
Reports live in a single JSON file under the workspace .coroner directory;
every save keeps a one-generation backup. Drafts stay editable, submitting
locks a report, and only an admin can unlock it again. Every field edit is
folded into the report's audit trail.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := store.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("CORONER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(actorCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Manage post-mortem reports"}
	rep.AddCommand(reportListCmd())
	rep.AddCommand(reportShowCmd())
	rep.AddCommand(reportSaveCmd())
	rep.AddCommand(reportSubmitCmd())
	rep.AddCommand(reportUnlockCmd())
	return rep
}

func reportListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				reports, err := e.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(reports)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Status", "Locked", "Person", "PM No", "Updated By", "Updated At"})
				for _, r := range reports {
					tw.AppendRow(table.Row{
						r.ID, r.Status, r.Locked,
						strOrEmpty(r.General.PersonName),
						strOrEmpty(r.Header.PMNo),
						r.UpdatedBy, r.UpdatedAt,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func reportShowCmd() *cobra.Command {
	var flat bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report, err := e.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if flat {
					return printJSONOrTable(report.ToFlat())
				}
				return printJSONOrTable(report)
			})
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "print the flat wire shape")
	return cmd
}

func reportSaveCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a draft from a flat JSON payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			incoming, err := readFlatPayload(filePath)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report, _, err := e.Upsert(ctx, incoming, "", cliActor(ctx))
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to flat JSON payload (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func reportSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit and lock a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report, _, err := e.Upsert(ctx, domain.FlatReport{Meta: domain.Meta{ID: args[0]}}, engine.ActionSubmit, cliActor(ctx))
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
	return cmd
}

func reportUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock <id>",
		Short: "Unlock a submitted report (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report, _, err := e.Upsert(ctx, domain.FlatReport{Meta: domain.Meta{ID: args[0]}}, engine.ActionUnlock, cliActor(ctx))
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
	return cmd
}

func auditCmd() *cobra.Command {
	aud := &cobra.Command{Use: "audit", Short: "Inspect report audit trails"}
	aud.AddCommand(auditShowCmd())
	return aud
}

func auditShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the audit trail of one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				report, err := e.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report.Audit)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"By", "At", "Fields"})
				for _, entry := range report.Audit {
					for _, action := range entry.Actions {
						tw.AppendRow(table.Row{entry.By, action.At, strings.Join(action.Fields, ", ")})
					}
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actorID == "" {
				actorID = viper.GetString("actor-id")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.EnsureActor(ctx, actorID); err != nil {
					return err
				}
				secret := uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   actorID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				// The secret is shown once and stored only as a hash.
				fmt.Printf("API key created for %s:\n%s\n", actorID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id (defaults to --actor-id)")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created At"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor id")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func actorCmd() *cobra.Command {
	act := &cobra.Command{Use: "actor", Short: "Manage actors"}
	act.AddCommand(actorListCmd())
	act.AddCommand(actorSuperuserCmd(true))
	act.AddCommand(actorSuperuserCmd(false))
	return act
}

func actorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				actors, err := r.ListActors(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(actors)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Superuser", "Created At"})
				for _, a := range actors {
					tw.AppendRow(table.Row{a.ID, a.Superuser, a.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func actorSuperuserCmd(grant bool) *cobra.Command {
	use, short := "promote <id>", "Grant superuser to an actor"
	if !grant {
		use, short = "demote <id>", "Revoke superuser from an actor"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.EnsureActor(ctx, args[0]); err != nil {
					return err
				}
				return r.SetSuperuser(ctx, args[0], grant)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default coroner.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "coroner", "registry name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			st, err := store.New(store.Config{
				Workspace: workspace,
				File:      cfg.Storage.File,
				Backup:    cfg.Storage.Backup,
			})
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			e := engine.New(st, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:           os.Getenv("CORONER_JWT_SECRET"),
				AllowHeaderIdentity: cfg.Auth.AllowHeaderIdentity,
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				Repo:     r,
				Registry: cfg,
				BasePath: basePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Coroner API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	st, err := store.New(store.Config{
		Workspace: workspace,
		File:      cfg.Storage.File,
		Backup:    cfg.Storage.Backup,
	})
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(st, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

// cliActor resolves the acting identity for local commands, picking up the
// superuser flag from the workspace actor table when present.
func cliActor(ctx context.Context) domain.Actor {
	actor := domain.Actor{ID: viper.GetString("actor-id")}
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return actor
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return actor
	}
	r := repo.Repo{DB: conn}
	if rec, err := r.GetActor(ctx, actor.ID); err == nil {
		actor.Superuser = rec.Superuser
	}
	return actor
}

func readFlatPayload(path string) (domain.FlatReport, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = readAllStdin()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.FlatReport{}, err
	}
	var flat domain.FlatReport
	if err := json.Unmarshal(data, &flat); err != nil {
		return domain.FlatReport{}, fmt.Errorf("parse payload: %w", err)
	}
	return flat, nil
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
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

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
