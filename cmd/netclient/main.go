package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/storagenet/internal/protocol"
)

func main() {
	var (
		wsURL      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		actor      = flag.String("actor", "netclient", "actor name recorded in audits")
		typ        = flag.String("type", protocol.TypeList, "request type: LIST, INSERT, EXTRACT, REFRESH or REPORT")
		controller = flag.String("controller", "overworld@0,64,0", "controller position, dim@x,y,z")
		item       = flag.String("item", "", "item name (INSERT, EXTRACT)")
		meta       = flag.Int("meta", 0, "item meta (INSERT, EXTRACT)")
		tag        = flag.String("tag", "", "item tag (INSERT)")
		count      = flag.Int("count", 1, "item count (INSERT, EXTRACT)")
		ignoreMeta = flag.Bool("ignore_meta", false, "match any meta (EXTRACT)")
		simulate   = flag.Bool("simulate", false, "report the outcome without moving items")
		timeout    = flag.Duration("timeout", 10*time.Second, "response timeout")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[netclient] ", log.LstdFlags|log.Lmicroseconds)

	req, err := buildRequest(strings.ToUpper(strings.TrimSpace(*typ)), *controller, *item, *meta, *tag, *count, *ignoreMeta, *simulate)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	u, err := url.Parse(*wsURL)
	if err != nil {
		logger.Fatalf("url: %v", err)
	}
	q := u.Query()
	q.Set("actor", *actor)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	res, err := roundTrip(conn, req, *timeout)
	if err != nil {
		logger.Fatalf("%s: %v", req.Type, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if !res.OK {
		os.Exit(1)
	}
}

func buildRequest(typ, controller, item string, meta int, tag string, count int, ignoreMeta, simulate bool) (protocol.RequestMsg, error) {
	req := protocol.RequestMsg{
		Type:            typ,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("R_%d", time.Now().UnixNano()),
		Controller:      controller,
		Simulate:        simulate,
	}
	switch typ {
	case protocol.TypeList, protocol.TypeRefresh, protocol.TypeReport:
	case protocol.TypeInsert:
		if item == "" {
			return req, fmt.Errorf("INSERT needs -item")
		}
		req.Stack = &protocol.ItemStack{Item: item, Meta: meta, Tag: tag, Count: count}
	case protocol.TypeExtract:
		if item == "" {
			return req, fmt.Errorf("EXTRACT needs -item")
		}
		req.Item, req.Meta, req.IgnoreMeta, req.Count = item, meta, ignoreMeta, count
	default:
		return req, fmt.Errorf("unknown request type %q", typ)
	}
	return req, nil
}

// roundTrip sends req and waits for the RESULT carrying its id.
func roundTrip(conn *websocket.Conn, req protocol.RequestMsg, timeout time.Duration) (protocol.ResultMsg, error) {
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteJSON(req); err != nil {
		return protocol.ResultMsg{}, fmt.Errorf("send: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return protocol.ResultMsg{}, fmt.Errorf("read: %w", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeResult {
			continue
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			continue
		}
		if res.ID == req.ID {
			return res, nil
		}
	}
}
