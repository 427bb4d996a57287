package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type queryOpts struct {
	Limit      int
	Actor      string
	Action     string
	Controller string
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (audits, requests)")
	action := fs.String("action", "", "action filter (audits)")
	controller := fs.String("controller", "", "controller filter, dim@x,y,z (requests)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := queryOpts{Limit: *limit, Actor: *actor, Action: *action, Controller: *controller}
	if err := runQuery(os.Stdout, db, q, opts); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

// runQuery prints one JSON object per row of the named read-model view.
func runQuery(out io.Writer, db *sql.DB, q string, o queryOpts) error {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,chunks,blocks,chests,links,controllers FROM snapshots ORDER BY tick DESC LIMIT ?`, o.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick        int64  `json:"tick"`
				Path        string `json:"path"`
				Chunks      int    `json:"chunks"`
				Blocks      int    `json:"blocks"`
				Chests      int    `json:"chests"`
				Links       int    `json:"links"`
				Controllers int    `json:"controllers"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Chunks, &r.Blocks, &r.Chests, &r.Links, &r.Controllers); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "networks":
		rows, err := db.Query(`SELECT controller,members,links,truncated,tick FROM networks ORDER BY controller LIMIT ?`, o.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Controller string `json:"controller"`
				Members    int    `json:"members"`
				Links      int    `json:"links"`
				Truncated  bool   `json:"truncated"`
				Tick       int64  `json:"tick"`
			}
			if err := rows.Scan(&r.Controller, &r.Members, &r.Links, &r.Truncated, &r.Tick); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "requests":
		rows, err := db.Query(`SELECT tick,seq,actor,kind,controller,simulate,ok FROM requests
			WHERE (?='' OR actor=?) AND (?='' OR controller=?)
			ORDER BY tick DESC, seq DESC LIMIT ?`,
			o.Actor, o.Actor, o.Controller, o.Controller, o.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick       int64  `json:"tick"`
				Seq        int    `json:"seq"`
				Actor      string `json:"actor"`
				Kind       string `json:"kind"`
				Controller string `json:"controller"`
				Simulate   bool   `json:"simulate"`
				OK         bool   `json:"ok"`
			}
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Kind, &r.Controller, &r.Simulate, &r.OK); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "audits":
		rows, err := db.Query(`SELECT tick,actor,action,dim,x,y,z,COALESCE(reason,'') FROM audits
			WHERE (?='' OR actor=?) AND (?='' OR action=?)
			ORDER BY tick DESC, seq DESC LIMIT ?`,
			o.Actor, o.Actor, o.Action, o.Action, o.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   int64  `json:"tick"`
				Actor  string `json:"actor"`
				Action string `json:"action"`
				Dim    string `json:"dim"`
				X      int    `json:"x"`
				Y      int    `json:"y"`
				Z      int    `json:"z"`
				Reason string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Actor, &r.Action, &r.Dim, &r.X, &r.Y, &r.Z, &r.Reason); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "links":
		rows, err := db.Query(`SELECT pos,snapshot_tick,record_json FROM links ORDER BY pos LIMIT ?`, o.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Pos    string          `json:"pos"`
				Tick   int64           `json:"snapshot_tick"`
				Record json.RawMessage `json:"record"`
			}
			var raw string
			if err := rows.Scan(&r.Pos, &r.Tick, &raw); err != nil {
				return err
			}
			r.Record = json.RawMessage(raw)
			_ = enc.Encode(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q (want snapshots, networks, requests, audits or links)", q)
	}
}
