// Command memora-identities mints and deletes the test accounts used by
// memora-load.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memora/memora-load/internal/config"
	"github.com/memora/memora-load/internal/httpclient"
	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/logging"
	"github.com/memora/memora-load/internal/mint"
)

const (
	defaultServiceAccount = "test_service-account-key.json"
	requestTimeout        = 30 * time.Second
)

type options struct {
	users          int
	out            string
	serviceAccount string
	deleteFile     string
	toolkitURL     string
	logLevel       string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newCommand(os.Stdout, os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(stdout io.Writer, getenv func(string) string) *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "memora-identities",
		Short:         "Mint or delete the test accounts used by memora-load",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, stdout, getenv)
		},
	}
	cmd.SetOut(stdout)

	flags := cmd.Flags()
	flags.IntVar(&opts.users, "users", 1, "Number of accounts to mint")
	flags.StringVar(&opts.out, "out", config.DefaultIdentities, "Identity file to write")
	flags.StringVar(&opts.serviceAccount, "service-account", defaultServiceAccount, "Service account key used to sign custom tokens")
	flags.StringVar(&opts.deleteFile, "delete-file", "", "Delete the accounts listed in this identity file, then remove it")
	flags.StringVar(&opts.toolkitURL, "toolkit-url", mint.DefaultToolkitURL, "Identity Toolkit base URL")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	_ = flags.MarkHidden("toolkit-url")
	return cmd
}

func run(ctx context.Context, opts options, stdout io.Writer, getenv func(string) string) error {
	log, err := logging.New(opts.logLevel, "memora-identities")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	toolkit, err := mint.NewToolkit(httpclient.NewClient(requestTimeout), opts.toolkitURL, getenv(mint.APIKeyEnv))
	if err != nil {
		return err
	}

	if opts.deleteFile != "" {
		return deleteAccounts(ctx, mint.NewMinter(nil, toolkit, log), opts.deleteFile, stdout)
	}

	if opts.users <= 0 {
		return errors.New("users must be greater than zero")
	}
	account, err := mint.LoadServiceAccount(opts.serviceAccount)
	if err != nil {
		return err
	}
	minter := mint.NewMinter(account, toolkit, log)

	ids, err := minter.Mint(ctx, opts.users)
	if err != nil {
		return err
	}
	if err := identity.Save(opts.out, ids); err != nil {
		return err
	}
	log.Info("identities saved", zap.Int("requested", opts.users), zap.Int("created", len(ids)), zap.String("path", opts.out))
	fmt.Fprintf(stdout, "Created %d users. Details saved in %s\n", len(ids), opts.out)
	return nil
}

func deleteAccounts(ctx context.Context, minter *mint.Minter, path string, stdout io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("identity file: %w", err)
	}
	pool, err := identity.Load(path)
	if err != nil {
		return err
	}
	deleted, err := minter.Delete(ctx, pool.All())
	if err != nil {
		return fmt.Errorf("deleted %d of %d users, keeping %s: %w", deleted, pool.Len(), path, err)
	}
	if err := identity.Remove(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted %d users and removed %s\n", deleted, path)
	return nil
}
