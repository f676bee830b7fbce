// Package zkp implements the note/nullifier/commitment-tree primitives and
// the transaction and batch circuits built on top of them.
package zkp

import (
	"errors"
	"sync"
)

// Commitment tree errors
var (
	ErrTreeFull        = errors.New("commitment tree is full")
	ErrInvalidLeafIndex = errors.New("invalid leaf index")
	ErrInvalidDepth    = errors.New("tree depth must be greater than zero")
)

// TreeDepth is the fixed depth of the commitment tree.
const TreeDepth = 32

// DefaultRootHistoryLimit bounds how many recent roots an anchor may still
// reference before it is considered stale.
const DefaultRootHistoryLimit = 100

// Commitment is the canonical 32-byte encoding of a commitment-tree node.
type Commitment [32]byte

var zeroCommitment Commitment

// CommitmentTree is an append-only Merkle accumulator over note
// commitments with a frontier cache (so extending it costs O(depth) hashes
// rather than storing every node) and a bounded FIFO of recent roots so
// transaction anchors can be validated against "recent enough" state
// without replaying the whole tree.
type CommitmentTree struct {
	mu sync.RWMutex

	depth        int
	leafCount    uint64
	root         Commitment
	frontier     []Commitment
	defaultNodes []Commitment
	rootHistory  []Commitment
	historyLimit int

	// leaves caches every appended leaf so authentication paths can be
	// rebuilt; the persistent backend (internal/storage) saves this same
	// leaf list inside its commitment-tree snapshot rather than a node-level
	// store.
	leaves []Commitment
}

// NewCommitmentTree creates an empty commitment tree. depth == 0 defaults
// to TreeDepth; historyLimit == 0 defaults to DefaultRootHistoryLimit.
func NewCommitmentTree(depth, historyLimit int) (*CommitmentTree, error) {
	if depth == 0 {
		depth = TreeDepth
	}
	if depth < 0 {
		return nil, ErrInvalidDepth
	}
	if historyLimit == 0 {
		historyLimit = DefaultRootHistoryLimit
	}

	defaults := computeDefaultNodes(depth)
	root := defaults[len(defaults)-1]

	return &CommitmentTree{
		depth:        depth,
		frontier:     make([]Commitment, depth),
		defaultNodes: defaults,
		root:         root,
		rootHistory:  []Commitment{root},
		historyLimit: historyLimit,
	}, nil
}

// computeDefaultNodes builds the empty-subtree hash at every level, starting
// from the all-zero leaf digest: default_nodes[L] = H(default_nodes[L-1],
// default_nodes[L-1]).
func computeDefaultNodes(depth int) []Commitment {
	nodes := make([]Commitment, 0, depth+1)
	nodes = append(nodes, zeroCommitment)
	for level := 0; level < depth; level++ {
		nodes = append(nodes, hashPairCommitment(nodes[level], nodes[level]))
	}
	return nodes
}

func hashPairCommitment(left, right Commitment) Commitment {
	leftElem, err := nativeElementFromBytes32(left)
	if err != nil {
		panic("zkp: non-canonical commitment bytes in tree")
	}
	rightElem, err := nativeElementFromBytes32(right)
	if err != nil {
		panic("zkp: non-canonical commitment bytes in tree")
	}
	return nativeElementToBytes32(nativeMerkleNode(leftElem, rightElem))
}

// Append inserts a new leaf and returns its position and the resulting
// root. Each level updates the frontier in place: when the current node is
// a left child it becomes frontier[level] and the parent hashes against the
// level's default (empty) node; when it is a right child the parent hashes
// the cached frontier[level] against it.
func (t *CommitmentTree) Append(leaf Commitment) (uint64, Commitment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	capacity := uint64(1) << uint(t.depth)
	if t.leafCount >= capacity {
		return 0, Commitment{}, ErrTreeFull
	}

	position := t.leafCount
	current := leaf
	levelPosition := position

	for level := 0; level < t.depth; level++ {
		if levelPosition&1 == 0 {
			t.frontier[level] = current
			current = hashPairCommitment(current, t.defaultNodes[level])
		} else {
			current = hashPairCommitment(t.frontier[level], current)
		}
		levelPosition >>= 1
	}

	t.root = current
	t.leafCount++
	t.leaves = append(t.leaves, leaf)
	t.recordRoot(t.root)

	return position, t.root, nil
}

func (t *CommitmentTree) recordRoot(root Commitment) {
	if n := len(t.rootHistory); n > 0 && t.rootHistory[n-1] == root {
		return
	}
	if t.historyLimit != 0 {
		for len(t.rootHistory) >= t.historyLimit {
			t.rootHistory = t.rootHistory[1:]
		}
	}
	t.rootHistory = append(t.rootHistory, root)
}

// Root returns the current tree root.
func (t *CommitmentTree) Root() Commitment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// LeafCount returns the number of appended commitments.
func (t *CommitmentTree) LeafCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leafCount
}

// ContainsRoot reports whether r is within the bounded root history window.
func (t *CommitmentTree) ContainsRoot(r Commitment) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, known := range t.rootHistory {
		if known == r {
			return true
		}
	}
	return false
}

// AuthenticationPath returns the D sibling digests needed to recompute the
// root from the leaf at index.
func (t *CommitmentTree) AuthenticationPath(index uint64) ([]Commitment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index >= t.leafCount {
		return nil, ErrInvalidLeafIndex
	}

	// Rebuild bottom-up from the cached leaves; this mirrors the "stored
	// per-level arrays of already-inserted nodes" description, computed
	// on demand rather than retained level by level.
	level := make([]Commitment, len(t.leaves))
	copy(level, t.leaves)

	siblings := make([]Commitment, t.depth)
	idx := index
	for lvl := 0; lvl < t.depth; lvl++ {
		siblingIdx := idx ^ 1
		if int(siblingIdx) < len(level) {
			siblings[lvl] = level[siblingIdx]
		} else {
			siblings[lvl] = t.defaultNodes[lvl]
		}

		next := make([]Commitment, (len(level)+1)/2)
		for i := 0; i < len(next); i++ {
			l := level[2*i]
			var r Commitment
			if 2*i+1 < len(level) {
				r = level[2*i+1]
			} else {
				r = t.defaultNodes[lvl]
			}
			next[i] = hashPairCommitment(l, r)
		}
		level = next
		idx >>= 1
	}

	return siblings, nil
}

// VerifyPath recomputes the root from a leaf, its position and an
// authentication path, using the standard zero/one-bit-per-level rule.
func VerifyPath(leaf Commitment, position uint64, path []Commitment, expectedRoot Commitment) bool {
	current := leaf
	idx := position
	for _, sibling := range path {
		if idx&1 == 0 {
			current = hashPairCommitment(current, sibling)
		} else {
			current = hashPairCommitment(sibling, current)
		}
		idx >>= 1
	}
	return current == expectedRoot
}

// CompactSnapshot is the externally persisted cold-start representation of
// a commitment tree: leaf count, root, frontier and the tail of root
// history, matching the node storage's persisted layout.
type CompactSnapshot struct {
	Depth        int
	HistoryLimit int
	LeafCount    uint64
	Root         Commitment
	Frontier     []Commitment
	RootHistory  []Commitment
	Leaves       []Commitment
}

// Snapshot captures the tree's compact state for persistence.
func (t *CommitmentTree) Snapshot() CompactSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	frontier := make([]Commitment, len(t.frontier))
	copy(frontier, t.frontier)
	history := make([]Commitment, len(t.rootHistory))
	copy(history, t.rootHistory)
	leaves := make([]Commitment, len(t.leaves))
	copy(leaves, t.leaves)

	return CompactSnapshot{
		Depth:        t.depth,
		HistoryLimit: t.historyLimit,
		LeafCount:    t.leafCount,
		Root:         t.root,
		Frontier:     frontier,
		RootHistory:  history,
		Leaves:       leaves,
	}
}

// FromCompact reconstructs a tree from an externally persisted snapshot
// without replaying every historical commitment.
func FromCompact(s CompactSnapshot) (*CommitmentTree, error) {
	if s.Depth <= 0 {
		return nil, ErrInvalidDepth
	}

	defaults := computeDefaultNodes(s.Depth)

	frontier := make([]Commitment, s.Depth)
	copy(frontier, s.Frontier)

	historyLimit := s.HistoryLimit
	if historyLimit == 0 {
		historyLimit = DefaultRootHistoryLimit
	}

	history := make([]Commitment, len(s.RootHistory))
	copy(history, s.RootHistory)
	if historyLimit != 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if len(history) == 0 || history[len(history)-1] != s.Root {
		history = append(history, s.Root)
	}

	leaves := make([]Commitment, len(s.Leaves))
	copy(leaves, s.Leaves)

	return &CommitmentTree{
		depth:        s.Depth,
		leafCount:    s.LeafCount,
		root:         s.Root,
		frontier:     frontier,
		defaultNodes: defaults,
		rootHistory:  history,
		historyLimit: historyLimit,
		leaves:       leaves,
	}, nil
}
