// Command rdnsd is the caching recursive DNS forwarder daemon.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/halvard/rdnsd/internal/config"
	"github.com/halvard/rdnsd/internal/eventloop"
	"github.com/halvard/rdnsd/internal/forwarder"
	"github.com/halvard/rdnsd/internal/stats"
)

func main() {
	configPath := flag.String("config", "rdnsd.yaml", "path to the YAML configuration file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading configuration", "path", *configPath, "err", err)
		os.Exit(1)
	}

	reg := stats.NewRegistry()

	fwd := forwarder.New(log, reg)
	for name, records := range cfg.Hosts {
		fwd.Seed(name, records)
	}
	log.Info("host cache seeded", "entries", len(cfg.Hosts))

	var statsLn *stats.Listener
	if cfg.SocketPath != "" {
		statsLn, err = stats.ListenUnix(cfg.SocketPath, reg, fwd, log)
		if err != nil {
			log.Error("binding stats socket", "path", cfg.SocketPath, "err", err)
			os.Exit(1)
		}
		defer statsLn.Close()
		log.Info("stats socket listening", "path", cfg.SocketPath)
	}

	loop, err := eventloop.New(cfg.ListenAddress, cfg.Servers, fwd, statsLn, log)
	if err != nil {
		log.Error("binding DNS socket", "addr", cfg.ListenAddress, "err", err)
		os.Exit(1)
	}
	defer loop.Close()

	log.Info("rdnsd starting", "listen", cfg.ListenAddress, "servers", cfg.Servers)
	loop.Run(nil)
}
