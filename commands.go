package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"musicportal/admin"
	"musicportal/catalog"
	"musicportal/config"
	"musicportal/model"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(strings.TrimSpace(*c.configFlag))
		if c.configErr != nil {
			return
		}
		level, err := logrus.ParseLevel(c.config.LogLevel)
		if err != nil {
			c.configErr = fmt.Errorf("config: %w", err)
			return
		}
		logger.Logger.SetLevel(level)
	})
	return c.config, c.configErr
}

// withApp runs fn with a wired App and closes it afterwards.
func (c *commandContext) withApp(fn func(app *App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "musicportal",
		Short:         "Music distribution portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.yaml or .toml)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newReleasesCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newUserRoleCommand(ctx))
	return rootCmd
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(app *App) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := app.Bootstrap(runCtx); err != nil {
					return err
				}
				return serve(runCtx, app)
			})
		},
	}
}

func serve(ctx context.Context, app *App) error {
	srv := &http.Server{
		Addr:    app.Config.HttpListenAddr,
		Handler: MakeRouter(app),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "musicportal.yaml"
			if len(args) == 1 {
				target = args[0]
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
			}
			if err := config.Default().WriteFile(target); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return cfg.Write(cmd.OutOrStdout())
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

func newReleasesCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := catalog.ReleaseFilter{Status: model.ReleaseStatus(strings.ToUpper(status))}
			if f.Status != "" && !f.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return ctx.withApp(func(app *App) error {
				releases, err := app.Catalog.Store().ListReleases(cmd.Context(), f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(releases) == 0 {
					fmt.Fprintln(out, "No releases")
					return nil
				}
				printReleases(out, releases)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only releases in this status (DRAFT, UNDER_REVIEW, APPROVED, REJECTED)")
	return cmd
}

func printReleases(out io.Writer, releases []model.Release) {
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Title,
			r.PrimaryArtist,
			colorStatus(string(r.Status), colorize),
			strconv.Itoa(len(r.Tracks)),
			strconv.FormatUint(uint64(r.OwnerID), 10),
			r.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Artist", "Status", "Tracks", "Owner", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all releases as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(app *App) error {
				releases, err := app.Catalog.Store().ListReleases(cmd.Context(), catalog.ReleaseFilter{})
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					return admin.WriteCSV(cmd.OutOrStdout(), releases)
				}

				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := admin.WriteCSV(f, releases); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d releases to %s\n", len(releases), outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var ownerEmail, title string
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Create a DRAFT release from the mp3 files of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ownerEmail == "" || title == "" {
				return errors.New("--owner and --title are required")
			}
			return ctx.withApp(func(app *App) error {
				r, err := importRelease(cmd.Context(), app, args[0], ownerEmail, title)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported release %d %q with %d tracks\n", r.ID, r.Title, len(r.Tracks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerEmail, "owner", "", "Email of the owning user")
	cmd.Flags().StringVar(&title, "title", "", "Release title")
	return cmd
}

func importRelease(ctx context.Context, app *App, dir, ownerEmail, title string) (*model.Release, error) {
	owner, err := app.Auth.FindByEmail(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	files, err := app.Store.ImportDir(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no mp3 files found in %s", dir)
	}

	in := catalog.ReleaseInput{Title: title, PrimaryArtist: files[0].Track.Singer}
	for _, f := range files {
		in.Tracks = append(in.Tracks, catalog.TrackInput{
			Title:    f.Track.Title,
			Singer:   f.Track.Singer,
			Composer: f.Track.Composer,
		})
	}
	r, err := app.Catalog.Create(ctx, owner, in)
	if err != nil {
		for _, f := range files {
			_ = app.Store.Remove(f.Key)
		}
		return nil, err
	}

	for i := range r.Tracks {
		t, err := app.Catalog.LinkTrackAudio(ctx, owner, r.ID, r.Tracks[i].ID, files[i].Track.AudioURL, nil)
		if err != nil {
			return nil, err
		}
		r.Tracks[i] = *t
	}
	return r, nil
}

func newUserRoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "user-role <email> <role>",
		Short: "Change the role of a user (ARTIST, LABEL, ADMIN)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(app *App) error {
				user, err := app.Auth.FindByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				user, err = app.Auth.SetRole(cmd.Context(), user.ID, model.Role(strings.ToUpper(args[1])))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
				return nil
			})
		},
	}
}
