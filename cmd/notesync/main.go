// Command notesync mirrors an Evernote account to local storage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/notesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/notesync/internal/app"
	"github.com/custodia-labs/notesync/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, version, func(cfg *config.Config) (cli.Services, error) {
		a, err := app.New(cfg, app.Options{Version: version})
		if err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
