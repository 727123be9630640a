// Package agent runs one simulated player through the target game: load the
// menu, pick a name, create or join a room, play the configured rounds and
// wait for the results screen.
//
// A Runner owns exactly one browser page and produces exactly one Result.
// Errors and panics never escape Run; they are recorded in the shared issue
// sink and turned into a failed Result.
package agent

import (
	"fmt"

	"github.com/entrhq/partyprobe/pkg/browser"
)

// Launcher opens the browser page an agent drives.
type Launcher interface {
	Launch(name string) (browser.Page, error)
}

// RoleKind distinguishes the room creator from the joiners.
type RoleKind string

const (
	RoleHost   RoleKind = "host"
	RoleClient RoleKind = "client"
)

// Role is an agent's part in the game. Index is 1-based for clients and 0
// for the host.
type Role struct {
	Kind  RoleKind `json:"kind"`
	Index int      `json:"index,omitempty"`
}

// Host returns the host role.
func Host() Role {
	return Role{Kind: RoleHost}
}

// Client returns the role of the index-th client.
func Client(index int) Role {
	return Role{Kind: RoleClient, Index: index}
}

// IsHost reports whether r creates the room.
func (r Role) IsHost() bool {
	return r.Kind == RoleHost
}

func (r Role) String() string {
	if r.IsHost() {
		return "host"
	}
	return fmt.Sprintf("client %d", r.Index)
}

// Result is the outcome of one agent run. Reason is empty iff Success.
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// Succeeded returns a successful result.
func Succeeded() Result {
	return Result{Success: true}
}

// Failed returns a failed result. An empty reason becomes "unknown failure".
func Failed(reason string) Result {
	if reason == "" {
		reason = "unknown failure"
	}
	return Result{Success: false, Reason: reason}
}

func (r Result) String() string {
	if r.Success {
		return "success"
	}
	return "failed: " + r.Reason
}
