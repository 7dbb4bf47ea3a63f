// Command zoompayctl is the operator CLI: it bootstraps the first superuser,
// applies migrations, exports voucher registers and sweeps orphaned blobs
// without going through the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/config"
	"github.com/garyjia/zoompay/internal/container"
	"github.com/garyjia/zoompay/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	err := root.cmd.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix("ZOOMPAY"))
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp), errors.Is(err, ff.ErrNoExec):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.cmd.GetSelected()))
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootCommand carries the flags shared by every subcommand
type rootCommand struct {
	cmd        *ff.Command
	flags      *ff.FlagSet
	configPath *string
	logLevel   *string
}

func newRootCommand() *rootCommand {
	fs := ff.NewFlagSet("zoompayctl")
	r := &rootCommand{
		flags:      fs,
		configPath: fs.StringLong("config", "configs/config.yaml", "config file path"),
		logLevel:   fs.StringLong("log-level", "info", "log level: debug, info, warn, error"),
	}
	r.cmd = &ff.Command{
		Name:      "zoompayctl",
		Usage:     "zoompayctl [FLAGS] <SUBCOMMAND> ...",
		ShortHelp: "ZoomPay operator tools",
		Flags:     fs,
		Subcommands: []*ff.Command{
			newMigrateCommand(r),
			newBootstrapCommand(r),
			newExportCommand(r),
			newSweepCommand(r),
		},
	}
	return r
}

// env is the slice of the service an offline command needs
type env struct {
	cfg    *container.Config
	logger *zap.Logger
	db     *container.DatabaseBundle
	repos  *container.RepositoryBundle
}

// open loads configuration and opens the database, applying migrations
func (r *rootCommand) open() (*env, error) {
	cfg, err := config.Load(*r.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      *r.logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cc := cfg.ToContainerConfig()
	db, err := container.ProvideDatabase(&cc.Database, logger)
	if err != nil {
		return nil, err
	}
	repos, err := container.ProvideRepositories(db.SqlDB, logger)
	if err != nil {
		_ = db.SqlDB.Close()
		return nil, err
	}

	return &env{cfg: cc, logger: logger, db: db, repos: repos}, nil
}

func (e *env) close() {
	_ = e.db.SqlDB.Close()
	_ = e.logger.Sync()
}

// services builds the application services that need no blob store
func (e *env) services() (*container.ServiceBundle, error) {
	identity, err := container.ProvideIdentity(&e.cfg.Auth)
	if err != nil {
		return nil, err
	}
	return container.ProvideServices(&container.ServiceDeps{
		Repos:     e.repos,
		TxManager: e.db.TransactionMgr,
		Exporter:  container.ProvideExporter(&e.cfg.Export, e.logger),
		Identity:  identity,
		Logger:    e.logger,
	})
}
