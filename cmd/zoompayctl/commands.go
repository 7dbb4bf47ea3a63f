package main

import (
	"context"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/container"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
	"github.com/garyjia/zoompay/internal/infrastructure/worker"
)

// operator is the identity offline commands act as
var operator = entity.Actor{
	ID:       "zoompayctl",
	Name:     "zoompayctl",
	Role:     domainwf.RoleSuperuser,
	Approved: true,
}

func newMigrateCommand(root *rootCommand) *ff.Command {
	fs := ff.NewFlagSet("migrate").SetParent(root.flags)
	return &ff.Command{
		Name:      "migrate",
		Usage:     "zoompayctl migrate",
		ShortHelp: "apply pending database migrations",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			e, err := root.open()
			if err != nil {
				return err
			}
			defer e.close()

			fmt.Fprintf(os.Stdout, "database %s is up to date\n", e.cfg.Database.Path)
			return nil
		},
	}
}

func newBootstrapCommand(root *rootCommand) *ff.Command {
	fs := ff.NewFlagSet("bootstrap-superuser").SetParent(root.flags)
	var (
		name     = fs.StringLong("name", "Administrator", "display name")
		email    = fs.StringLong("email", "", "login email (required)")
		password = fs.StringLong("password", "", "login password, at least 8 characters (or ZOOMPAY_PASSWORD)")
	)
	return &ff.Command{
		Name:      "bootstrap-superuser",
		Usage:     "zoompayctl bootstrap-superuser --email EMAIL --password PASSWORD",
		ShortHelp: "create an approved superuser directly in the store",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			e, err := root.open()
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.services()
			if err != nil {
				return err
			}
			user, err := svc.Auth.Bootstrap(ctx, service.SignupInput{Name: *name, Email: *email, Password: *password})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "superuser %s created (id %s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func newExportCommand(root *rootCommand) *ff.Command {
	fs := ff.NewFlagSet("export").SetParent(root.flags)
	var (
		queue     = fs.StringLong("queue", string(service.QueuePayment), "voucher queue: checker, to_initiate, awaiting_proof, payment")
		voucherID = fs.StringLong("voucher", "", "export the payment advice of one voucher instead of a queue")
		out       = fs.StringLong("out", "", "output file (default: the workbook name in the current directory)")
	)
	return &ff.Command{
		Name:      "export",
		Usage:     "zoompayctl export [--queue QUEUE | --voucher ID] [--out FILE]",
		ShortHelp: "write a voucher register or payment advice workbook",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			e, err := root.open()
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.services()
			if err != nil {
				return err
			}

			var wb *service.Workbook
			if *voucherID != "" {
				wb, err = svc.Exports.PaymentAdvice(ctx, operator, *voucherID)
			} else {
				wb, err = svc.Exports.Register(ctx, operator, service.Queue(*queue))
			}
			if err != nil {
				return err
			}

			path := *out
			if path == "" {
				path = wb.Filename
			}
			if err := os.WriteFile(path, wb.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(os.Stdout, "wrote %s (%d bytes)\n", path, len(wb.Data))
			return nil
		},
	}
}

func newSweepCommand(root *rootCommand) *ff.Command {
	fs := ff.NewFlagSet("sweep-orphans").SetParent(root.flags)
	del := fs.BoolLong("delete", "delete expired orphans instead of only reporting them")
	return &ff.Command{
		Name:      "sweep-orphans",
		Usage:     "zoompayctl sweep-orphans [--delete]",
		ShortHelp: "report blobs left behind by failed writes",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			e, err := root.open()
			if err != nil {
				return err
			}
			defer e.close()

			store, err := container.ProvideBlobStore(&e.cfg.Storage, e.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sweeper := worker.NewOrphanSweeper(worker.OrphanSweeperConfig{
				Interval:  e.cfg.Worker.SweepInterval,
				Retention: e.cfg.Worker.OrphanRetention,
				Delete:    *del || e.cfg.Worker.DeleteOrphans,
			}, e.repos.Orphan, store.Blobs, e.logger)

			result, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "pending=%d expired=%d deleted=%d failed=%d\n",
				result.Pending, result.Expired, result.Deleted, result.Failed)
			return nil
		},
	}
}
