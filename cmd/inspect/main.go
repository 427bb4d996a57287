package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "voxelcraft.ai/storagenet/internal/persistence/log"
	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/protocol"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		snapDir   = flag.String("dir", "", "snapshot dir; the latest snapshot is used when -snapshot is empty")
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst (optional)")
		asJSON    = flag.Bool("json", false, "print reports as JSON")
	)
	flag.Parse()

	path := strings.TrimSpace(*snapPath)
	if path == "" && *snapDir != "" {
		path = snapshot.Latest(*snapDir)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot (or -dir with snapshots)")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	w, err := worldFromSnapshot(snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("snapshot v%d world=%s tick=%d chunks=%d blocks=%d chests=%d links=%d controllers=%d drops=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick,
		len(snap.Chunks), len(snap.Blocks), len(snap.Chests), len(snap.Links), len(snap.Controllers), len(snap.Drops))

	if err := writeReports(os.Stdout, w, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}

	if *eventsDir == "" {
		return
	}
	files, err := listEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	counts, err := tallyRequests(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "events:", err)
		os.Exit(1)
	}
	writeTally(os.Stdout, counts)
}

// worldFromSnapshot builds a stopped world holding the snapshot's state. The
// loop is never started, so the caller may use the world directly.
func worldFromSnapshot(snap snapshot.SnapshotV1) (*world.World, error) {
	tps := snap.TickRate
	if tps <= 0 {
		tps = 20
	}
	w, err := world.New(world.WorldConfig{
		ID:         snap.Header.WorldID,
		TickRateHz: tps,
		MemberCap:  snap.MemberCap,
		ChunkSize:  snap.ChunkSize,
	})
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, err
	}
	return w, nil
}

type controllerView struct {
	Report  protocol.NetworkReport `json:"report"`
	Listing []protocol.ItemStack   `json:"listing"`
}

func writeReports(out io.Writer, w *world.World, asJSON bool) error {
	var views []controllerView
	for _, p := range w.Controllers() {
		rep, err := w.Report(p)
		if err != nil {
			return err
		}
		list, err := w.List(p)
		if err != nil {
			return err
		}
		v := controllerView{Report: rep}
		for _, s := range list {
			v.Listing = append(v.Listing, protocol.ItemStack{Item: s.Item, Meta: s.Meta, Tag: s.Tag, Count: s.Count})
		}
		views = append(views, v)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for _, v := range views {
		r := v.Report
		trunc := ""
		if r.Truncated {
			trunc = " (truncated)"
		}
		fmt.Fprintf(out, "controller %s members=%d%s empty_slots=%d\n", r.Controller, r.Members, trunc, r.EmptySlots)
		for _, b := range r.Blocks {
			fmt.Fprintf(out, "  block %-12s x%d\n", b.Name, b.Count)
		}
		for _, l := range r.Links {
			fmt.Fprintf(out, "  link  %s prio=%d dir=%s face=%s\n", l.Pos, l.Priority, l.Direction, l.Face)
		}
		for _, s := range v.Listing {
			fmt.Fprintf(out, "  item  %s:%d x%d\n", s.Item, s.Meta, s.Count)
		}
	}
	return nil
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// requestTally counts logged requests by kind, split by outcome.
type requestTally map[string]*[2]int

func tallyRequests(files []string) (requestTally, error) {
	counts := requestTally{}
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var entry world.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			for _, r := range entry.Requests {
				c := counts[r.Kind]
				if c == nil {
					c = &[2]int{}
					counts[r.Kind] = c
				}
				if r.OK {
					c[0]++
				} else {
					c[1]++
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func writeTally(out io.Writer, counts requestTally) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "requests %-8s ok=%d failed=%d\n", k, counts[k][0], counts[k][1])
	}
}
