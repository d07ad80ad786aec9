package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelsiege.ai/internal/persistence/indexdb"
	persistlog "voxelsiege.ai/internal/persistence/log"
	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/world"
)

func levelsCmd(args []string) {
	fs := flag.NewFlagSet("levels", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	ents, err := os.ReadDir(filepath.Join(*dataDir, "levels"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Printf("%s\t%d\t%s\n", e.Name(), info.Size(), info.ModTime().UTC().Format("2006-01-02T15:04:05Z"))
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	path := fs.String("level", "", "level file (.json or .json.zst)")
	_ = fs.Parse(args)
	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -level")
		os.Exit(2)
	}
	lv, err := snapshot.Read(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read level:", err)
		os.Exit(1)
	}
	s := summarizeLevel(lv)
	b, _ := json.MarshalIndent(s, "", "  ")
	fmt.Println(string(b))
}

type levelSummary struct {
	Channels     int            `json:"channels"`
	Cells        int            `json:"cells"`
	Resolution   int            `json:"resolution"`
	SolidCells   []int          `json:"solid_cells"`
	Turrets      map[string]int `json:"turrets"`
	InnerTurrets map[string]int `json:"inner_turrets"`
}

// summarizeLevel counts, per channel, cells above the default isolation
// level and the turrets by kind.
func summarizeLevel(lv snapshot.LevelV1) levelSummary {
	s := levelSummary{
		Channels:     len(lv.Voxels),
		Cells:        lv.Cells(),
		Turrets:      map[string]int{},
		InnerTurrets: map[string]int{},
	}
	for r := 1; r*r*r <= s.Cells; r++ {
		if r*r*r == s.Cells {
			s.Resolution = r
		}
	}
	for _, ch := range lv.Voxels {
		n := 0
		for _, v := range ch {
			if v > 0.2 {
				n++
			}
		}
		s.SolidCells = append(s.SolidCells, n)
	}
	for _, t := range lv.Turrets {
		s.Turrets[t.Type]++
	}
	for _, t := range lv.InnerTurrets {
		s.InnerTurrets[t.Type]++
	}
	return s
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (default: <data>/index/siege.sqlite)")
	outcome := fs.String("outcome", "", "VICTORY, DEFEAT or ABANDONED (default: all)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	path := *dbPath
	if path == "" {
		path = filepath.Join(*dataDir, "index", "siege.sqlite")
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	runs, err := idx.Runs(context.Background(), strings.ToUpper(*outcome), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range runs {
		fmt.Printf("%s\t%-9s\tticks=%d-%d\telapsed=%.1fs\tkills=%d\tshots=%d\tdamage=%.0f\n",
			r.RunID, r.Outcome, r.StartTick, r.EndTick, r.Elapsed, r.Stats.Kills, r.Stats.ShotsFired, r.Stats.DamageTaken)
	}
}

type eventSummary struct {
	Files     int            `json:"files"`
	Entries   int            `json:"entries"`
	FirstTick uint64         `json:"first_tick"`
	LastTick  uint64         `json:"last_tick"`
	Kinds     map[string]int `json:"kinds"`
	Phases    []string       `json:"phases"`
	Outcomes  []string       `json:"outcomes"`
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	fromTick := fs.Uint64("from_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, 0 = no limit)")
	_ = fs.Parse(args)

	sum, err := summarizeEvents(filepath.Join(*dataDir, "events"), *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "events:", err)
		os.Exit(1)
	}
	b, _ := json.MarshalIndent(sum, "", "  ")
	fmt.Println(string(b))
}

func summarizeEvents(dir string, fromTick, toTick uint64) (eventSummary, error) {
	sum := eventSummary{Kinds: map[string]int{}}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return sum, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "events-") && strings.HasSuffix(e.Name(), ".jsonl.zst") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sum.Files++
		err := persistlog.ReadJSONL(filepath.Join(dir, name), func(raw json.RawMessage) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if e.Tick < fromTick || (toTick != 0 && e.Tick > toTick) {
				return nil
			}
			if sum.Entries == 0 {
				sum.FirstTick = e.Tick
			}
			sum.Entries++
			sum.LastTick = e.Tick
			for _, ev := range e.Events {
				sum.Kinds[ev.Kind]++
				switch ev.Kind {
				case world.EventPhase:
					sum.Phases = append(sum.Phases, fmt.Sprintf("%d:%s", e.Tick, ev.Label))
				case world.EventOutcome:
					sum.Outcomes = append(sum.Outcomes, fmt.Sprintf("%d:%s", e.Tick, ev.Label))
				}
			}
			return nil
		})
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}
