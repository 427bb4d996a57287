package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"voxelcraft.ai/storagenet/internal/persistence/indexdb"
	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.AuditLogger
	Close() error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SN_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported SN_INDEX_BACKEND: %s", backend)
	}
}

// writeMetrics emits a minimal Prometheus exposition. It reads only values
// that are safe outside the world loop.
func writeMetrics(w io.Writer, worldID string, wd *world.World, idx runtimeIndex) {
	fmt.Fprintf(w, "# HELP storagenet_world_tick Current world tick.\n")
	fmt.Fprintf(w, "# TYPE storagenet_world_tick gauge\n")
	fmt.Fprintf(w, "storagenet_world_tick{world=%q} %d\n", worldID, wd.CurrentTick())

	fmt.Fprintf(w, "# HELP storagenet_request_queue_depth Requests waiting for the world loop.\n")
	fmt.Fprintf(w, "# TYPE storagenet_request_queue_depth gauge\n")
	fmt.Fprintf(w, "storagenet_request_queue_depth{world=%q} %d\n", worldID, wd.QueueDepth())

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(w, "# HELP storagenet_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE storagenet_index_queue_depth gauge\n")
	fmt.Fprintf(w, "storagenet_index_queue_depth{world=%q} %d\n", worldID, st.QueueDepth)

	fmt.Fprintf(w, "# HELP storagenet_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE storagenet_index_dropped_total counter\n")
	fmt.Fprintf(w, "storagenet_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "tick", st.DropTickTotal)
	fmt.Fprintf(w, "storagenet_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", st.DropAuditTotal)
	fmt.Fprintf(w, "storagenet_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", st.DropSnapshotTotal)
}
