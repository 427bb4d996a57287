package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

// registerAdmin adds local-only admin endpoints. They never change network
// state; a forced snapshot is exported from inside the world loop.
func registerAdmin(mux *http.ServeMux, worldID string, w *world.World, snapDir string, idx runtimeIndex) {
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			WorldID    string         `json:"world_id"`
			Tick       uint64         `json:"tick"`
			QueueDepth int            `json:"queue_depth"`
			Index      map[string]any `json:"index,omitempty"`
		}{
			WorldID:    worldID,
			Tick:       w.CurrentTick(),
			QueueDepth: w.QueueDepth(),
		}
		if idx != nil {
			st := idx.Stats()
			resp.Index = map[string]any{
				"queue_depth":    st.QueueDepth,
				"queue_capacity": st.QueueCapacity,
				"dropped":        st.DropTickTotal + st.DropAuditTotal + st.DropSnapshotTotal,
			}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	})

	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rw.Header().Set("Content-Type", "application/json")
		snap, err := w.RequestSnapshot(ctx)
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		path := snapshot.Path(snapDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": snap.Header.Tick, "error": err.Error()})
			return
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": snap.Header.Tick, "path": path})
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
