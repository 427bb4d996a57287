package world

import (
	"context"
	"errors"
	"time"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/protocol"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

type netReq struct {
	Kind       string
	Actor      string
	Controller model.DimPos
	Stack      model.Stack
	Query      ExtractQuery
	Simulate   bool
	Resp       chan netResp
}

type netResp struct {
	Tick      uint64
	Stacks    []model.Stack
	Stack     model.Stack
	Members   int
	Truncated bool
	Report    protocol.NetworkReport
	Snapshot  snapshot.SnapshotV1
	Err       error
}

const kindSnapshot = "SNAPSHOT"

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []netReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.requests:
			pending = append(pending, req)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// QueueDepth is the number of requests waiting for the loop.
func (w *World) QueueDepth() int { return len(w.requests) }

func (w *World) step(reqs []netReq) {
	tick := w.tick.Load()
	entry := TickLogEntry{Tick: tick}

	for _, r := range reqs {
		resp := w.handle(r)
		resp.Tick = tick
		if r.Kind == kindSnapshot {
			resp.Snapshot = w.ExportSnapshot(tick)
			select {
			case r.Resp <- resp:
			default:
			}
			continue
		}
		entry.Requests = append(entry.Requests, RecordedRequest{
			Actor:      r.Actor,
			Kind:       r.Kind,
			Controller: r.Controller.String(),
			Simulate:   r.Simulate,
			OK:         resp.Err == nil,
		})
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Caller gave up; never block the loop.
		}
	}

	if w.cfg.SummaryEveryTicks > 0 && tick%uint64(w.cfg.SummaryEveryTicks) == 0 {
		entry.Networks = w.Summaries()
	}
	if w.tickLogger != nil && (len(entry.Requests) > 0 || len(entry.Networks) > 0) {
		_ = w.tickLogger.WriteTick(entry)
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && tick > 0 && tick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(tick):
		default:
		}
	}

	w.tick.Add(1)
}

func (w *World) handle(r netReq) netResp {
	var resp netResp
	switch r.Kind {
	case protocol.TypeList:
		resp.Stacks, resp.Err = w.List(r.Controller)
	case protocol.TypeInsert:
		resp.Stack, resp.Err = w.Insert(r.Actor, r.Controller, r.Stack, r.Simulate)
	case protocol.TypeExtract:
		resp.Stack, resp.Err = w.Extract(r.Actor, r.Controller, r.Query, r.Simulate)
	case protocol.TypeRefresh:
		resp.Members, resp.Truncated, resp.Err = w.Refresh(r.Actor, r.Controller)
	case protocol.TypeReport:
		resp.Report, resp.Err = w.Report(r.Controller)
	case kindSnapshot:
	default:
		resp.Err = errors.New("unknown request kind: " + r.Kind)
	}
	return resp
}

func (w *World) submit(ctx context.Context, req netReq) (netResp, error) {
	resp := make(chan netResp, 1)
	req.Resp = resp

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return netResp{}, ctx.Err()
	}

	select {
	case r := <-resp:
		return r, r.Err
	case <-ctx.Done():
		return netResp{}, ctx.Err()
	}
}

// RequestList and the other Request* helpers hand a network operation to the
// loop goroutine and wait for its answer. They are safe to call from any
// goroutine.
func (w *World) RequestList(ctx context.Context, ctrl model.DimPos) ([]model.Stack, error) {
	r, err := w.submit(ctx, netReq{Kind: protocol.TypeList, Controller: ctrl})
	return r.Stacks, err
}

// RequestInsert returns the remainder that did not fit.
func (w *World) RequestInsert(ctx context.Context, actor string, ctrl model.DimPos, s model.Stack, simulate bool) (model.Stack, error) {
	r, err := w.submit(ctx, netReq{Kind: protocol.TypeInsert, Actor: actor, Controller: ctrl, Stack: s, Simulate: simulate})
	if err != nil {
		return s, err
	}
	return r.Stack, nil
}

func (w *World) RequestExtract(ctx context.Context, actor string, ctrl model.DimPos, q ExtractQuery, simulate bool) (model.Stack, error) {
	r, err := w.submit(ctx, netReq{Kind: protocol.TypeExtract, Actor: actor, Controller: ctrl, Query: q, Simulate: simulate})
	return r.Stack, err
}

func (w *World) RequestRefresh(ctx context.Context, actor string, ctrl model.DimPos) (int, bool, error) {
	r, err := w.submit(ctx, netReq{Kind: protocol.TypeRefresh, Actor: actor, Controller: ctrl})
	return r.Members, r.Truncated, err
}

func (w *World) RequestReport(ctx context.Context, ctrl model.DimPos) (protocol.NetworkReport, error) {
	r, err := w.submit(ctx, netReq{Kind: protocol.TypeReport, Controller: ctrl})
	return r.Report, err
}

// RequestSnapshot exports the world from inside the loop. The snapshot is
// taken at the tick that serves the request.
func (w *World) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	r, err := w.submit(ctx, netReq{Kind: kindSnapshot})
	return r.Snapshot, err
}
