package raft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/raft"
)

// Transport provides the HTTP side of cluster membership
type Transport struct {
	node   *Node
	client *http.Client
}

// NewTransport creates a new Transport
func NewTransport(node *Node) *Transport {
	return &Transport{
		node:   node,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type membershipRequest struct {
	NodeID   string `json:"node_id"`
	NodeAddr string `json:"node_addr,omitempty"`
}

// JoinCluster asks the node serving HTTP at joinAddr to add this node as a voter
func (t *Transport) JoinCluster(ctx context.Context, joinAddr, nodeID, raftAddr string) error {
	return t.post(ctx, joinAddr, "/raft/join", membershipRequest{NodeID: nodeID, NodeAddr: raftAddr})
}

// LeaveCluster asks the node serving HTTP at leaderAddr to remove nodeID
func (t *Transport) LeaveCluster(ctx context.Context, leaderAddr, nodeID string) error {
	return t.post(ctx, leaderAddr, "/raft/leave", membershipRequest{NodeID: nodeID})
}

func (t *Transport) post(ctx context.Context, httpAddr, path string, body membershipRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+httpAddr+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-success response: %d", resp.StatusCode)
	}
	return nil
}

// RaftHandler returns an HTTP handler for Raft-related operations
func (t *Transport) RaftHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/join", t.membership(func(req membershipRequest) raft.Future {
		return t.node.raft.AddVoter(raft.ServerID(req.NodeID), raft.ServerAddress(req.NodeAddr), 0, 0)
	}))
	mux.HandleFunc("/leave", t.membership(func(req membershipRequest) raft.Future {
		return t.node.raft.RemoveServer(raft.ServerID(req.NodeID), 0, 0)
	}))

	return mux
}

func (t *Transport) membership(change func(membershipRequest) raft.Future) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Only the leader can change membership
		if !t.node.Leader() {
			http.Error(w, "Not the leader", http.StatusConflict)
			return
		}

		var req membershipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
		if req.NodeID == "" {
			http.Error(w, "node_id is required", http.StatusBadRequest)
			return
		}

		if err := change(req).Error(); err != nil {
			http.Error(w, fmt.Sprintf("Failed to change membership: %v", err), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
