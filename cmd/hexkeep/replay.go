package main

import (
	"context"
	"flag"
	"fmt"

	"hexkeep/internal/saveio"
	"hexkeep/logging"
)

// runReplay implements `replay <save> [--ticks N] [--per-tick]
// [--print-input-summary] [--print-artifacts] [--dump-final-save PATH]`:
// load and hash-verify a save, rebuild the Simulation, re-drain its own
// input_log across N ticks, and optionally report progress or write a
// fresh save at the end.
func runReplay(ctx context.Context, args []string, pub logging.Publisher) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to an optional yaml config file")
	ticks := fs.Uint64("ticks", 1, "number of ticks to advance")
	perTick := fs.Bool("per-tick", false, "advance and report one tick at a time")
	printInputSummary := fs.Bool("print-input-summary", false, "print the input log size before replaying")
	printArtifacts := fs.Bool("print-artifacts", false, "print the trailing event trace after replaying")
	dumpFinalSave := fs.String("dump-final-save", "", "path to write the post-replay save to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: replay <save> [--config PATH] [--ticks N] [--per-tick] [--print-input-summary] [--print-artifacts] [--dump-final-save PATH]")
	}
	savePath := rest[0]

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	doc, err := saveio.Load(savePath)
	if err != nil {
		return err
	}
	sim, err := saveio.Restore(doc)
	if err != nil {
		return fmt.Errorf("restore save: %w", err)
	}
	if err := buildModules(sim, cfg, pub); err != nil {
		return err
	}
	sim.Start()

	if *printInputSummary {
		fmt.Printf("input_log: %d commands, next_command_index=%d\n", len(sim.InputLog), sim.NextCommandIndex)
	}

	if *perTick {
		for i := uint64(0); i < *ticks; i++ {
			if err := sim.AdvanceTicks(ctx, 1, pub); err != nil {
				return fmt.Errorf("advance tick %d: %w", sim.Clock.Tick, err)
			}
			fmt.Printf("tick=%d entities=%d\n", sim.Clock.Tick, sim.Entities.Len())
		}
	} else if err := sim.AdvanceTicks(ctx, *ticks, pub); err != nil {
		return fmt.Errorf("advance ticks: %w", err)
	}

	if *printArtifacts {
		for _, evt := range sim.Trace.Entries {
			fmt.Printf("event: tick=%d type=%s id=%s\n", evt.Tick, evt.Type, evt.ID)
		}
	}

	if *dumpFinalSave != "" {
		saveDoc, err := saveio.Build(sim, doc.WorldState.WorldHash, doc.Metadata)
		if err != nil {
			return fmt.Errorf("build final save: %w", err)
		}
		if err := saveio.Write(*dumpFinalSave, saveDoc); err != nil {
			return fmt.Errorf("write final save: %w", err)
		}
	}
	return nil
}
