package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/storagenet/internal/protocol"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

// Backend is the part of the world the transport talks to. Calls block until
// the world loop answers.
type Backend interface {
	RequestList(ctx context.Context, ctrl model.DimPos) ([]model.Stack, error)
	RequestInsert(ctx context.Context, actor string, ctrl model.DimPos, s model.Stack, simulate bool) (model.Stack, error)
	RequestExtract(ctx context.Context, actor string, ctrl model.DimPos, q world.ExtractQuery, simulate bool) (model.Stack, error)
	RequestRefresh(ctx context.Context, actor string, ctrl model.DimPos) (int, bool, error)
	RequestReport(ctx context.Context, ctrl model.DimPos) (protocol.NetworkReport, error)
	CurrentTick() uint64
}

type Server struct {
	backend Backend
	log     *log.Logger

	// RequestTimeout bounds how long one request may wait for the world loop.
	RequestTimeout time.Duration
	// ProtocolVersion is the version clients must send and results carry.
	ProtocolVersion string

	upgrader websocket.Upgrader
}

func NewServer(b Backend, logger *log.Logger) *Server {
	return &Server{
		backend:         b,
		log:             logger,
		RequestTimeout:  5 * time.Second,
		ProtocolVersion: protocol.Version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actor := strings.TrimSpace(r.URL.Query().Get("actor"))
		if actor == "" {
			actor = "anonymous"
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.serve(ctx, actor, msg)
			b, err := json.Marshal(res)
			if err != nil {
				if s.log != nil {
					s.log.Printf("encode result: %v", err)
				}
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// serve answers one request message.
func (s *Server) serve(ctx context.Context, actor string, msg []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.errorResult("", protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.ProtocolVersion != s.ProtocolVersion {
		return s.errorResult("", protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	req, err := protocol.DecodeRequest(msg)
	if err != nil {
		return s.errorResult(req.ID, protocol.ErrProtoBadRequest, err.Error())
	}
	ctrl, ok := model.ParseDimPos(req.Controller)
	if !ok {
		return s.errorResult(req.ID, protocol.ErrBadRequest, "bad controller position")
	}

	ctx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: s.ProtocolVersion,
		ID:              req.ID,
		OK:              true,
	}
	switch req.Type {
	case protocol.TypeList:
		var stacks []model.Stack
		stacks, err = s.backend.RequestList(ctx, ctrl)
		res.Stacks = make([]protocol.ItemStack, 0, len(stacks))
		for _, st := range stacks {
			res.Stacks = append(res.Stacks, toItemStack(st))
		}
	case protocol.TypeInsert:
		var rem model.Stack
		rem, err = s.backend.RequestInsert(ctx, actor, ctrl, fromItemStack(req.Stack), req.Simulate)
		if !rem.IsEmpty() {
			is := toItemStack(rem)
			res.Remainder = &is
		}
	case protocol.TypeExtract:
		var got model.Stack
		q := world.ExtractQuery{
			Pattern:    model.Stack{Item: req.Item, Meta: req.Meta, Count: 1},
			IgnoreMeta: req.IgnoreMeta,
			Count:      req.Count,
		}
		got, err = s.backend.RequestExtract(ctx, actor, ctrl, q, req.Simulate)
		if !got.IsEmpty() {
			is := toItemStack(got)
			res.Stack = &is
		}
	case protocol.TypeRefresh:
		res.Members, res.Truncated, err = s.backend.RequestRefresh(ctx, actor, ctrl)
	case protocol.TypeReport:
		var rep protocol.NetworkReport
		rep, err = s.backend.RequestReport(ctx, ctrl)
		res.Report = &rep
	}
	res.Tick = s.backend.CurrentTick()
	if err != nil {
		return s.errorResult(req.ID, errorCode(err), err.Error())
	}
	return res
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, world.ErrNoController), errors.Is(err, world.ErrChunkNotLoaded):
		return protocol.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrBusy
	}
	return protocol.ErrInternal
}

func toItemStack(s model.Stack) protocol.ItemStack {
	return protocol.ItemStack{Item: s.Item, Meta: s.Meta, Tag: s.Tag, Count: s.Count}
}

func fromItemStack(s *protocol.ItemStack) model.Stack {
	if s == nil {
		return model.Empty
	}
	return model.Stack{Item: s.Item, Meta: s.Meta, Tag: s.Tag, Count: s.Count}
}

func (s *Server) errorResult(id, code, msg string) protocol.ResultMsg {
	res := protocol.ErrorResult(id, code, msg)
	res.ProtocolVersion = s.ProtocolVersion
	return res
}
