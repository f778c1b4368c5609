// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tgf-sql inspects the instrument modes of the condition database.
//
// Without -mode-name, tgf-sql lists the modes and the mode of the last run.
// With -mode-name, it displays the mode as a TOML file loadable with -mode
// by the other commands.
// With -i, tgf-sql starts an interactive shell:
//
//	$> tgf-sql -i
//	tgf-sql> modes
//	  cal
//	* tgf
//	tgf-sql> mode tgf
//	name = "tgf"
//	[...]
//	tgf-sql> quit
package main // import "github.com/go-lpc/tgf/cmd/tgf-sql"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-lpc/tgf/conddb"
	"github.com/go-lpc/tgf/config"
	"github.com/peterh/liner"
)

const (
	dbname = "tgfsrv"
)

func main() {
	log.SetPrefix("tgf-sql: ")
	log.SetFlags(0)

	var (
		db   = flag.String("db", dbname, "name of the condition database")
		name = flag.String("mode-name", "", "instrument mode to display")
		repl = flag.Bool("i", false, "start an interactive shell")
	)

	flag.Parse()

	cdb, err := conddb.Open(*db)
	if err != nil {
		log.Fatalf("could not open condition db: %+v", err)
	}
	defer cdb.Close()

	if *repl {
		err = shell(os.Stdout, cdb)
		if err != nil {
			log.Fatalf("could not run shell: %+v", err)
		}
		return
	}

	err = doQuery(os.Stdout, cdb, *name)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

type querier interface {
	LastMode(ctx context.Context) (string, error)
	Modes(ctx context.Context) ([]string, error)
	Mode(ctx context.Context, name string) (config.Mode, error)
}

func doQuery(w io.Writer, db querier, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if name != "" {
		mode, err := db.Mode(ctx, name)
		if err != nil {
			return fmt.Errorf("could not get mode %q: %w", name, err)
		}
		err = toml.NewEncoder(w).Encode(mode)
		if err != nil {
			return fmt.Errorf("could not encode mode %q: %w", name, err)
		}
		return nil
	}

	modes, err := db.Modes(ctx)
	if err != nil {
		return fmt.Errorf("could not get modes: %w", err)
	}
	last, err := db.LastMode(ctx)
	if err != nil {
		return fmt.Errorf("could not get mode of last run: %w", err)
	}

	for _, mode := range modes {
		mark := " "
		if mode == last {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\n", mark, mode)
	}
	return nil
}

var shellCmds = []string{"help", "last", "mode", "modes", "quit"}

func shell(w io.Writer, db querier) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var o []string
		for _, cmd := range shellCmds {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				o = append(o, cmd)
			}
		}
		return o
	})

	for {
		line, err := term.Prompt("tgf-sql> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		term.AppendHistory(line)

		quit, err := eval(w, db, line)
		if err != nil {
			fmt.Fprintf(w, "error: %+v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// eval runs one shell command.
func eval(w io.Writer, db querier, line string) (quit bool, err error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return false, nil
	}

	switch cmd, args := strings.ToLower(toks[0]), toks[1:]; cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintf(w, "commands: %s\n", strings.Join(shellCmds, ", "))
		return false, nil
	case "modes":
		return false, doQuery(w, db, "")
	case "mode":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: mode NAME")
		}
		return false, doQuery(w, db, args[0])
	case "last":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		name, err := db.LastMode(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(w, "%s\n", name)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
}
