// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modeflag selects an instrument mode from command-line flags,
// either from a TOML file or from the condition database.
package modeflag // import "github.com/go-lpc/tgf/internal/modeflag"

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-lpc/tgf/conddb"
	"github.com/go-lpc/tgf/config"
)

// Selector holds the mode selection flags.
type Selector struct {
	File string // path to a TOML mode file
	DB   string // name of the condition database
	Name string // name of the mode in the condition database

	open func(dbname string) (*conddb.DB, error)
}

// Register registers the mode selection flags with fset.
func Register(fset *flag.FlagSet) *Selector {
	sel := &Selector{open: conddb.Open}
	fset.StringVar(&sel.File, "mode", "", "path to TOML instrument mode file")
	fset.StringVar(&sel.DB, "db", "", "name of the condition database to load the mode from")
	fset.StringVar(&sel.Name, "mode-name", "", "name of the mode to load from the condition database (default: mode of the last run)")
	return sel
}

// Mode returns the selected instrument mode.
func (sel *Selector) Mode(ctx context.Context) (config.Mode, error) {
	switch {
	case sel.File != "" && sel.DB != "":
		return config.Mode{}, fmt.Errorf("modeflag: -mode and -db are mutually exclusive")
	case sel.File != "":
		return config.Load(sel.File)
	case sel.DB != "":
		open := sel.open
		if open == nil {
			open = conddb.Open
		}
		db, err := open(sel.DB)
		if err != nil {
			return config.Mode{}, fmt.Errorf("modeflag: could not open condition db: %w", err)
		}
		defer db.Close()

		name := sel.Name
		if name == "" {
			name, err = db.LastMode(ctx)
			if err != nil {
				return config.Mode{}, fmt.Errorf("modeflag: could not find mode of last run: %w", err)
			}
		}
		return db.Mode(ctx, name)
	default:
		return config.Mode{}, fmt.Errorf("modeflag: missing -mode or -db flag")
	}
}
