package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesikahq/hospital-records/internal/appointment"
	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/auth"
	"github.com/mesikahq/hospital-records/internal/config"
	"github.com/mesikahq/hospital-records/internal/doctor"
	"github.com/mesikahq/hospital-records/internal/export"
	"github.com/mesikahq/hospital-records/internal/patient"
	"github.com/mesikahq/hospital-records/internal/store"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	audit  audit.Service

	auth         auth.Service
	patients     patient.Service
	doctors      doctor.Service
	appointments appointment.Service
	exporter     *export.Exporter

	principal *auth.Principal
	password  string
}

type globalFlags struct {
	configFile string
	role       string
	id         int
	password   string
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "hms",
		Short:         "Hospital records: patients, doctors, appointments, bills and prescriptions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: first config.yaml in ./configs, $HOME/.hms, /etc/hms)")
	rootCmd.PersistentFlags().StringVar(&flags.role, "role", os.Getenv("HMS_ROLE"), "login role: Patient or Doctor (env HMS_ROLE)")
	rootCmd.PersistentFlags().IntVar(&flags.id, "id", envInt("HMS_ID"), "login id (env HMS_ID)")
	rootCmd.PersistentFlags().StringVar(&flags.password, "password", os.Getenv("HMS_PASSWORD"), "login password (env HMS_PASSWORD)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd(flags))
	rootCmd.AddCommand(loginCmd(flags, a))
	rootCmd.AddCommand(meCmd(flags, a))
	rootCmd.AddCommand(patientCmd(flags, a))
	rootCmd.AddCommand(billCmd(flags, a))
	rootCmd.AddCommand(prescriptionCmd(flags, a))
	rootCmd.AddCommand(doctorCmd(flags, a))
	rootCmd.AddCommand(appointmentCmd(flags, a))
	rootCmd.AddCommand(exportCmd(flags, a))
	rootCmd.AddCommand(auditCmd(flags, a))

	return rootCmd
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}

func loadConfig(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Log.File != "" {
		zcfg.OutputPaths = []string{cfg.Log.File}
		zcfg.ErrorOutputPaths = []string{cfg.Log.File}
	}
	return zcfg.Build()
}

// open loads the data files, seeds the default doctor and wires the
// services. When requireLogin is set the global credentials must be valid.
func (a *app) open(ctx context.Context, flags *globalFlags, requireLogin bool) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger

	a.audit, err = audit.NewService(cfg.AuditFile())
	if err != nil {
		logger.Warn("Audit log unavailable, continuing without it", zap.Error(err))
		a.audit = audit.Discard()
	}

	a.store, err = store.Open(cfg.Files(), logger)
	if err != nil {
		return err
	}

	passwords := auth.Passwords{Hash: cfg.Security.HashPasswords, Cost: cfg.Security.BcryptCost}
	a.auth = auth.NewService(a.store, a.audit, passwords, logger)
	a.patients = patient.NewService(a.store, a.audit, passwords, logger)
	a.doctors = doctor.NewService(a.store, a.audit, passwords, logger)
	a.appointments = appointment.NewService(a.store, a.audit, logger)
	a.exporter = export.NewExporter(cfg.Export.Dir, a.audit, logger)

	if _, err := a.doctors.EnsureDefault(ctx, cfg.DefaultDoctor()); err != nil {
		return err
	}

	if !requireLogin {
		return nil
	}
	if flags.role == "" || flags.id == 0 {
		return errors.New("login required: set --role, --id and --password (or HMS_ROLE, HMS_ID, HMS_PASSWORD)")
	}
	role, err := auth.ParseRole(flags.role)
	if err != nil {
		return err
	}
	a.principal, err = a.auth.Login(ctx, role, flags.id, flags.password)
	if err != nil {
		return err
	}
	a.password = flags.password
	return nil
}

// ctx tags the context with the logged-in user for audit events.
func (a *app) ctx(ctx context.Context) context.Context {
	if a.principal == nil {
		return ctx
	}
	return audit.WithActor(ctx, a.principal.Actor())
}

func (a *app) requireDoctor() error {
	if a.principal == nil || a.principal.Role != auth.RoleDoctor {
		return errors.New("this command is available to doctors only")
	}
	return nil
}

// requireSelfOrDoctor lets patients reach only their own records.
func (a *app) requireSelfOrDoctor(patientID int) error {
	if a.principal == nil {
		return auth.ErrInvalidCredentials
	}
	if a.principal.Role == auth.RolePatient && a.principal.ID != patientID {
		return errors.New("patients may only view their own records")
	}
	return nil
}

// close ends the session opened by a successful login.
func (a *app) close() error {
	if a.principal != nil {
		a.auth.Logout(a.ctx(context.Background()), a.principal)
		a.principal = nil
	}
	if a.audit != nil {
		a.audit.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
	return nil
}

func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

// withLogin runs fn after opening the store and logging in.
func withLogin(flags *globalFlags, a *app, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context(), flags, true); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

// asDoctor is withLogin restricted to doctors.
func asDoctor(flags *globalFlags, a *app, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
		if err := a.requireDoctor(); err != nil {
			return err
		}
		return fn(cmd, args)
	})
}
