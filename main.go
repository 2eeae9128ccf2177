package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nutrition-target-api/auth"
	"nutrition-target-api/config"
	"nutrition-target-api/nutrition"
	"nutrition-target-api/planclient"
	"nutrition-target-api/session"
)

type cli struct {
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "nutrition-target",
		Short:        "Daily calorie and macro targets from body metrics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger, err = newLogger(cfg.Logging.Level, c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(c.serveCmd(), c.calcCmd(), c.tokenCmd(), c.configCmd())
	return root
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) openStore() (session.Store, error) {
	if c.cfg.Session.Driver == "memory" {
		c.logger.Warn("session store is in memory; sessions are lost on restart")
		return session.NewMemoryStore(), nil
	}
	store, err := session.OpenSQLite(c.cfg.Session.Path, c.logger.Named("session"))
	if err != nil {
		return nil, err
	}
	c.logger.Info("session store opened", zap.String("path", store.Path()))
	return store, nil
}

func (c *cli) serve(ctx context.Context) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	srv := NewServer(ServerOptions{
		Logger:         c.logger,
		Store:          store,
		Verifier:       auth.NewVerifier(c.cfg.Auth.JWTSecret),
		Plans:          planclient.New(c.cfg.Backend.BaseURL, c.cfg.GetBackendTimeout(), c.logger.Named("planclient")),
		AllowedOrigins: c.cfg.Server.AllowedOrigins,
		BatchWorkers:   c.cfg.Server.BatchWorkers,
	})

	httpServer := &http.Server{
		Addr:              ":" + c.cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("server starting", zap.String("port", c.cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (c *cli) calcCmd() *cobra.Command {
	var (
		height, weight                            float64
		age                                       int
		sex, activity, goal, diet, profile, basis string
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a nutrition target and print it as JSON",
		Example: `  nutrition-target calc --height 175 --weight 70 --age 25 --sex Male --activity Moderate --goal Maintain
  nutrition-target calc --height 160 --weight 55 --age 30 --sex Female --diet athlete --basis diet_type`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := nutrition.UserMetrics{HeightCm: height, WeightKg: weight, AgeYears: age}
			var err error
			if m.Sex, err = nutrition.ParseSex(sex); err != nil {
				return err
			}
			if m.ActivityLevel, err = nutrition.ParseActivityLevel(activity); err != nil {
				return err
			}
			if m.Goal, err = nutrition.ParseGoal(goal); err != nil {
				return err
			}
			if m.DietType, err = nutrition.ParseDietType(diet); err != nil {
				return err
			}

			b, err := breakdownFor(TargetRequest{UserMetrics: m, MacroProfile: profile, MacroBasis: basis})
			if err != nil {
				return err
			}
			c.logger.Debug("target computed", zap.Float64("bmr", b.BMR), zap.Int("calories", b.Target.DailyCalories))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&height, "height", 0, "height in cm")
	f.Float64Var(&weight, "weight", 0, "weight in kg")
	f.IntVar(&age, "age", 0, "age in years")
	f.StringVar(&sex, "sex", "", "Male, Female or Other")
	f.StringVar(&activity, "activity", "", "Sedentary, Light, Moderate, Active or Very Active (default Moderate)")
	f.StringVar(&goal, "goal", "", "Lose Weight, Maintain, Gain Muscle or Improve Health")
	f.StringVar(&diet, "diet", "", "normal or athlete")
	f.StringVar(&profile, "profile", "", "named macro profile, overrides --basis")
	f.StringVar(&basis, "basis", macroBasisGoal, "macro table: goal or diet_type")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl == 0 {
				ttl = c.cfg.GetTokenTTL()
			}
			token, err := auth.Issue(c.cfg.Auth.JWTSecret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the YAML config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", c.configPath)
			}
			if err := config.DefaultConfig().Save(c.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", c.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
