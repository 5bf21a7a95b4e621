package engine

import (
	"calbot/app/model"
	"calbot/app/service/conflict"
)

// node names one station of the orchestration graph.
type node string

const (
	nodeAgent            node = "agent"
	nodeTools            node = "tools"
	nodeConflictDetector node = "conflict_detector"
	nodeEnd              node = "end"
)

// State threads one orchestration turn through the graph. Messages is the
// append-only transcript: steps only ever append to it. PendingCheck and
// LastCheck follow the opposite discipline: they are scalar fields fully
// replaced on every write, the last write winning.
type State struct {
	Messages     []model.Message
	PendingCheck *conflict.CheckRequest
	LastCheck    *conflict.CheckResult
}
