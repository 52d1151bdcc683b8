// Command hexkeep is the CLI surface for the simulation core:
// new_save_from_map materializes a save from an authored world map, replay
// re-drains a save's own input log across further ticks. main stays thin
// and delegates to a run function that owns logging/config/exit-code
// wiring.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"hexkeep/logging"
	loggingSinks "hexkeep/logging/sinks"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hexkeep <new_save_from_map|replay> [--config PATH] ...")
	}

	fallback := log.New(os.Stderr, "", log.LstdFlags)
	logCfg := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsoleSink(os.Stderr),
	}
	router, err := logging.NewRouter(logCfg, logging.SystemClock{}, fallback, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			fallback.Printf("failed to close logging router: %v", cerr)
		}
	}()

	pub := logging.Publisher(router)

	switch subcommand := args[0]; subcommand {
	case "new_save_from_map":
		return runNewSaveFromMap(ctx, args[1:], pub)
	case "replay":
		return runReplay(ctx, args[1:], pub)
	default:
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}
