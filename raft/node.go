package raft

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

// applyTimeout bounds how long a proposal waits to be committed
const applyTimeout = 5 * time.Second

// ErrNoLeader is returned when a single-node cluster fails to elect itself
var ErrNoLeader = errors.New("no raft leader elected")

// Node represents a node in the Raft cluster
type Node struct {
	id        string
	raft      *raft.Raft
	fsm       *FSM
	transport raft.Transport
}

// Config represents the configuration for a Raft node
type Config struct {
	NodeID    string
	RaftAddr  string
	RaftDir   string
	Bootstrap bool
	Peers     []string
}

// NewNode creates a new Raft node
func NewNode(config *Config) (*Node, error) {
	// Create the FSM
	fsm := NewFSM()

	// Create Raft configuration
	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.SnapshotInterval = 20 * time.Second
	raftConfig.SnapshotThreshold = 1024

	// Create the BoltDB store for logs
	logStorePath := filepath.Join(config.RaftDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create BoltDB log store: %v", err)
	}

	// Create the stable store for data
	stableStorePath := filepath.Join(config.RaftDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create BoltDB stable store: %v", err)
	}

	// Create the snapshot store
	snapshotStore, err := raft.NewFileSnapshotStore(
		config.RaftDir, 3, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %v", err)
	}

	// Setup TCP transport
	addr, err := net.ResolveTCPAddr("tcp", config.RaftAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve TCP address: %v", err)
	}
	transport, err := raft.NewTCPTransport(config.RaftAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP transport: %v", err)
	}

	// Create the Raft instance
	r, err := raft.NewRaft(
		raftConfig,
		fsm,
		logStore,
		stableStore,
		snapshotStore,
		transport,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Raft instance: %v", err)
	}

	// Bootstrap if needed
	if config.Bootstrap {
		// Create server configuration
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(config.NodeID),
					Address: raft.ServerAddress(config.RaftAddr),
				},
			},
		}

		// Add other peers
		for _, peer := range config.Peers {
			if peer != config.RaftAddr {
				configuration.Servers = append(configuration.Servers, raft.Server{
					ID:      raft.ServerID(fmt.Sprintf("node-%s", peer)),
					Address: raft.ServerAddress(peer),
				})
			}
		}

		// Bootstrap the cluster
		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("failed to bootstrap cluster: %v", err)
		}
	}

	return &Node{
		id:        config.NodeID,
		raft:      r,
		fsm:       fsm,
		transport: transport,
	}, nil
}

// Apply applies a command to the Raft log
func (n *Node) Apply(cmd *models.Command) error {
	data, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal command: %v", err)
	}

	// Apply the command to the Raft log
	future := n.raft.Apply(data, applyTimeout)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to apply command to Raft log: %w", err)
	}

	// Check for application error
	if appErr, ok := future.Response().(error); ok && appErr != nil {
		return fmt.Errorf("command application failed: %w", appErr)
	}

	return nil
}

// ID returns the raft server ID of this node
func (n *Node) ID() string {
	return n.id
}

// IsNotLeader reports whether err comes from proposing on a follower
func IsNotLeader(err error) bool {
	return errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost)
}

// GetFSM returns the FSM
func (n *Node) GetFSM() *FSM {
	return n.fsm
}

// Leader returns true if this node is the leader
func (n *Node) Leader() bool {
	return n.raft.State() == raft.Leader
}

// LeaderAddress returns the address of the current leader
func (n *Node) LeaderAddress() string {
	return string(n.raft.Leader())
}

// State returns the current state of the Raft node
func (n *Node) State() raft.RaftState {
	return n.raft.State()
}

// Shutdown stops the Raft node
func (n *Node) Shutdown() error {
	// Shutdown Raft before its transport so in-flight RPCs drain
	var err error
	if n.raft != nil {
		err = n.raft.Shutdown().Error()
	}

	if closer, ok := n.transport.(io.Closer); ok {
		closer.Close()
	}

	return err
}

// NewInmemNode creates a single-node cluster backed by memory only.
// It is used by the -dev mode and by tests; nothing survives a restart.
func NewInmemNode(nodeID string) (*Node, error) {
	fsm := NewFSM()

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(nodeID)
	raftConfig.HeartbeatTimeout = 50 * time.Millisecond
	raftConfig.ElectionTimeout = 50 * time.Millisecond
	raftConfig.LeaderLeaseTimeout = 50 * time.Millisecond
	raftConfig.CommitTimeout = 5 * time.Millisecond
	raftConfig.LogOutput = io.Discard

	store := raft.NewInmemStore()
	snapshots := raft.NewInmemSnapshotStore()
	addr, transport := raft.NewInmemTransport("")

	r, err := raft.NewRaft(raftConfig, fsm, store, store, snapshots, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create Raft instance: %v", err)
	}

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raftConfig.LocalID, Address: addr},
		},
	}
	if err := r.BootstrapCluster(configuration).Error(); err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("failed to bootstrap cluster: %v", err)
	}

	node := &Node{id: nodeID, raft: r, fsm: fsm, transport: transport}
	if err := node.WaitForLeader(5 * time.Second); err != nil {
		node.Shutdown()
		return nil, err
	}
	// The only voter may report itself as leader slightly after the address is set
	for i := 0; i < 100 && !node.Leader(); i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if !node.Leader() {
		node.Shutdown()
		return nil, ErrNoLeader
	}
	return node, nil
}

// WaitForLeader blocks until the cluster has a known leader or the timeout elapses
func (n *Node) WaitForLeader(timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if n.LeaderAddress() != "" {
			return nil
		}
		select {
		case <-deadline:
			return ErrNoLeader
		case <-tick.C:
		}
	}
}
