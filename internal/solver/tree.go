package solver

import "github.com/pokeriq/gtocore/internal/game"

// NodeHandle addresses a node inside the arena. Handles stay valid for the
// lifetime of the solve; the arena only ever grows.
type NodeHandle int32

// NilNode is the absent-node sentinel.
const NilNode NodeHandle = -1

// node is one decision point reached during traversal. The arena memoizes
// nodes by exact state identity, so two distinct betting lines never share a
// node even when the acting player cannot tell them apart. The shared regret
// accumulators live in the InfoSetTable under infoKey instead.
type node struct {
	infoKey string
	actions []game.Action
	visits  int64
}

// tree is an arena of nodes plus two indexes: state key to handle for
// memoization, and information-set key to member handles for inspection.
type tree struct {
	nodes     []node
	byState   map[string]NodeHandle
	byInfoSet map[string][]NodeHandle
}

func newTree() *tree {
	return &tree{
		byState:   make(map[string]NodeHandle),
		byInfoSet: make(map[string][]NodeHandle),
	}
}

// nodeFor returns the handle for the state, materialising the node on first
// visit. The action list is computed once and reused on every revisit, so the
// strategy vector indexes stay stable across iterations.
func (t *tree) nodeFor(s game.GameState, abs game.Abstraction) NodeHandle {
	stateKey := s.StateKey()
	if h, ok := t.byState[stateKey]; ok {
		t.nodes[h].visits++
		return h
	}

	infoKey := s.InfoSetKey(abs)
	h := NodeHandle(len(t.nodes))
	t.nodes = append(t.nodes, node{
		infoKey: infoKey,
		actions: s.LegalActions(abs),
		visits:  1,
	})
	t.byState[stateKey] = h
	t.byInfoSet[infoKey] = append(t.byInfoSet[infoKey], h)
	return h
}

func (t *tree) get(h NodeHandle) *node {
	return &t.nodes[h]
}

// size returns the number of materialised nodes.
func (t *tree) size() int {
	return len(t.nodes)
}

// infoSetMembers returns how many distinct states share the information set.
func (t *tree) infoSetMembers(infoKey string) int {
	return len(t.byInfoSet[infoKey])
}
