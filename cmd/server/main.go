package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/devadigapratham/printsync/api"
	"github.com/devadigapratham/printsync/api/handlers"
	"github.com/devadigapratham/printsync/config"
	"github.com/devadigapratham/printsync/raft"
	"github.com/devadigapratham/printsync/seed"
	"github.com/devadigapratham/printsync/snmp"
	"github.com/devadigapratham/printsync/stock"
	"github.com/devadigapratham/printsync/watchdog"
	"github.com/sirupsen/logrus"
)

const (
	leaderWait      = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	// Parse command line flags
	cfg := config.ParseFlags()

	log, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	// Create a unique node ID if not provided
	if cfg.NodeID == "" {
		cfg.NodeID = filepath.Base(cfg.RaftDir)
	}

	node, err := newNode(cfg)
	if err != nil {
		log.Fatalf("Failed to create Raft node: %v", err)
	}

	// Create transport
	transport := raft.NewTransport(node)
	store := raft.NewStore(node)

	reader := snmp.NewClient(snmp.Config{
		Community: cfg.SNMPCommunity,
		Port:      uint16(cfg.SNMPPort),
		Timeout:   cfg.SNMPTimeout,
		Retries:   cfg.SNMPRetries,
	}, log)
	poller := watchdog.NewPoller(store, reader, cfg.PollInterval, log)
	supervisor := watchdog.NewSupervisor(poller, cfg.StopGrace, log)
	engine := stock.NewEngine(store, cfg.LowStockThreshold, log)

	// Setup HTTP router
	handler := handlers.NewHandler(node, store, engine, supervisor, log)
	router := api.SetupRouter(handler, transport)

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Join the cluster if needed
	if cfg.JoinAddr != "" && !cfg.Bootstrap && !cfg.Dev {
		log.WithField("join_addr", cfg.JoinAddr).Info("joining cluster")
		if err := transport.JoinCluster(context.Background(), cfg.JoinAddr, cfg.NodeID, cfg.RaftAddr); err != nil {
			// Continue anyway, the leader can add this node later
			log.WithError(err).Warn("failed to join cluster")
		}
	}

	if cfg.SeedFile != "" || cfg.WatchdogAutostart {
		if err := node.WaitForLeader(leaderWait); err != nil {
			log.WithError(err).Warn("no leader, skipping seed and watchdog autostart")
		} else if node.Leader() {
			if cfg.SeedFile != "" {
				applySeed(store, cfg.SeedFile, log)
			}
			if cfg.WatchdogAutostart {
				log.WithField("status", supervisor.Start()).Info("watchdog autostart")
			}
		}
	}

	// Handle shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if _, err := supervisor.Stop(ctx); err != nil {
		log.WithError(err).Warn("watchdog did not stop cleanly")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("error shutting down HTTP server")
	}

	// Shutdown Raft node
	if err := node.Shutdown(); err != nil {
		log.WithError(err).Error("error shutting down Raft node")
	}

	log.Info("shutdown complete")
}

func newNode(cfg *config.Config) (*raft.Node, error) {
	if cfg.Dev {
		return raft.NewInmemNode(cfg.NodeID)
	}

	// Create Raft data directory if it doesn't exist
	if err := os.MkdirAll(cfg.RaftDir, 0755); err != nil {
		return nil, err
	}

	return raft.NewNode(&raft.Config{
		NodeID:    cfg.NodeID,
		RaftAddr:  cfg.RaftAddr,
		RaftDir:   cfg.RaftDir,
		Bootstrap: cfg.Bootstrap,
		Peers:     cfg.Peers,
	})
}

// applySeed loads the seed file into an empty inventory
func applySeed(store *raft.Store, path string, log logrus.FieldLogger) {
	log = log.WithField("seed", path)
	if len(store.FSM().GetMaterials()) > 0 || len(store.FSM().GetProducts()) > 0 {
		log.Info("inventory already populated, skipping seed")
		return
	}

	file, err := seed.Load(path)
	if err != nil {
		log.WithError(err).Error("failed to load seed file")
		return
	}
	if err := file.Apply(context.Background(), store); err != nil {
		log.WithError(err).Error("failed to apply seed file")
		return
	}
	log.WithFields(logrus.Fields{
		"materials": len(file.Materials),
		"recipes":   len(file.Recipes),
		"products":  len(file.Products),
		"settings":  len(file.Settings),
	}).Info("seed applied")
}
