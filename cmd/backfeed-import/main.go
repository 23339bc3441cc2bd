package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/backfeedhq/backfeed/internal/app"
	"github.com/backfeedhq/backfeed/internal/config"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/pkg/keyring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	slug := flag.String("silo", "", "silo slug to import (defaults to the single enabled silo)")
	reset := flag.Bool("reset", false, "discard the silo's stored importer state instead of importing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importRun, err := app.NewImportRun(ctx, cfg, *slug)
	if err != nil {
		return err
	}
	defer importRun.Close()

	if *reset {
		if err := importRun.Reset(); err != nil {
			return fmt.Errorf("reset importer state: %w", err)
		}
		fmt.Println("Importer state discarded.")
		return nil
	}

	res, err := importRun.Run(ctx)
	for _, advisory := range res.Advisories {
		fmt.Fprintln(os.Stderr, advisoryText(advisory))
	}
	if err != nil {
		return err
	}

	fmt.Println("Import log:")
	if len(res.Log) == 0 {
		fmt.Println("  (nothing new)")
	}
	for _, line := range res.Log {
		fmt.Println("  " + line)
	}
	return nil
}

// advisoryText keeps remote hiccups readable: transient rejections become a
// retry hint, anything else is shown as-is.
func advisoryText(err error) string {
	var remoteErr *keyring.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Transient() {
		return fmt.Sprintf("remote busy (status %d), try again later", remoteErr.StatusCode)
	}
	return err.Error()
}
