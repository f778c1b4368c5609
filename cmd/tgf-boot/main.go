// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tgf-boot (re)starts all the processes of a TDAQ replay chain.
//
// The processes are described by a TOML file:
//
//	log_dir = "/var/log/tgf"
//
//	[[proc]]
//	name = "run-ctl"
//	cmd  = ["tdaq-runctl", "-lvl", "dbg"]
//
//	[[proc]]
//	name = "tgf-srv"
//	cmd  = ["tgf-srv", "-id", "tgf-srv", "-mode", "tgf.toml", "/data/tgf_0042.raw"]
package main // import "github.com/go-lpc/tgf/cmd/tgf-boot"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

type bootConfig struct {
	LogDir string `toml:"log_dir"`
	Procs  []proc `toml:"proc"`
}

type proc struct {
	Name string   `toml:"name"`
	Cmd  []string `toml:"cmd"`
}

type options struct {
	restart bool          // kill running instances first
	mon     bool          // enable pmon monitoring
	freq    time.Duration // pmon frequency
}

func main() {
	var (
		opts options
		dir  = flag.String("dir", os.Getenv("TGFLOGDIR"), "directory of log files (default: boot file value)")
	)
	flag.BoolVar(&opts.restart, "restart", true, "kill running instances of the processes first")
	flag.BoolVar(&opts.mon, "pmon", false, "enable pmon monitoring")
	flag.DurationVar(&opts.freq, "freq", 1*time.Second, "pmon frequency")

	flag.Parse()

	log.SetPrefix("tgf-boot: ")
	log.SetFlags(0)

	if flag.NArg() != 1 {
		log.Fatalf("missing path to boot file")
	}

	cfg, err := loadConfig(flag.Arg(0))
	if err != nil {
		log.Fatalf("could not load boot file: %+v", err)
	}
	if *dir != "" {
		cfg.LogDir = *dir
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	err = run(opts, cfg, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func loadConfig(fname string) (bootConfig, error) {
	var cfg bootConfig
	_, err := toml.DecodeFile(fname, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode %q: %w", fname, err)
	}
	if len(cfg.Procs) == 0 {
		return cfg, fmt.Errorf("no process in %q", fname)
	}
	for i, p := range cfg.Procs {
		if len(p.Cmd) == 0 {
			return cfg, fmt.Errorf("process %d (%q) has no command", i, p.Name)
		}
		if p.Name == "" {
			cfg.Procs[i].Name = filepath.Base(p.Cmd[0])
		}
	}
	return cfg, nil
}

func run(opts options, cfg bootConfig, stop chan os.Signal) error {
	if opts.restart {
		for _, p := range cfg.Procs {
			name := filepath.Base(p.Cmd[0])
			kill := exec.Command("killall", name)
			kill.Stderr = os.Stderr
			kill.Stdout = os.Stdout
			err := kill.Run()
			if err != nil {
				log.Printf("could not kill %q: %+v", name, err)
			}
		}
	}

	dir := cfg.LogDir
	if dir == "" {
		dir = "/var/log/tgf"
	}

	var (
		grp  errgroup.Group
		kill = make(chan int)
	)
	for i := range cfg.Procs {
		p := cfg.Procs[i]
		grp.Go(func() error {
			cmd := exec.Command(p.Cmd[0], p.Cmd[1:]...)
			return start(p.Name, cmd, dir, kill, opts)
		})
	}

	go func() {
		<-stop
		close(kill)
	}()

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot TDAQ chain: %w", err)
	}
	return nil
}

func start(name string, cmd *exec.Cmd, dir string, kill chan int, opts options) error {
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if opts.mon {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for command %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = opts.freq

		go func() {
			log.Printf("run pmon %q...", name)
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-kill:
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %+v", name, err)
		}
		<-errch
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}
