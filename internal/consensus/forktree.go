package consensus

import (
	"math/big"
	"sync"

	"github.com/veilchain/core/pkg/types"
)

// forkNode is one block in the in-memory fork tree.
type forkNode struct {
	header        types.BlockHeader
	cumulativeWork *big.Int
	children       []types.Hash
}

// ForkTree tracks every known block header since the last finalized block
// and resolves fork choice by cumulative proof-of-work, the way a Nakamoto
// consensus chain does: the canonical tip is the descendant of the
// finalized block with the greatest accumulated work, with ties broken by
// lexicographically smallest block hash so that every honest node converges
// on the same tip given the same header set.
type ForkTree struct {
	mu sync.RWMutex

	nodes     map[types.Hash]*forkNode
	finalized types.Hash
	tip       types.Hash
}

// NewForkTree creates a fork tree rooted at the given finalized (e.g.
// genesis) header.
func NewForkTree(root types.BlockHeader) *ForkTree {
	rootHash := root.Hash
	ft := &ForkTree{
		nodes:     make(map[types.Hash]*forkNode),
		finalized: rootHash,
		tip:       rootHash,
	}
	ft.nodes[rootHash] = &forkNode{
		header:         root,
		cumulativeWork: types.Work(targetFromHeader(root)),
	}
	return ft
}

func targetFromHeader(header types.BlockHeader) *big.Int {
	target, err := CompactToTarget(header.Difficulty)
	if err != nil {
		return big.NewInt(0)
	}
	return target.ToBig()
}

// Insert adds a new header as a child of its parent and updates the tip if
// the new branch now carries the greatest cumulative work. Returns
// ErrUnknownParent if the parent has not been inserted.
func (ft *ForkTree) Insert(header types.BlockHeader) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	parent, exists := ft.nodes[header.ParentHash]
	if !exists {
		return ErrUnknownParent
	}

	work := types.Work(targetFromHeader(header))
	cumulative := new(big.Int).Add(parent.cumulativeWork, work)

	node := &forkNode{
		header:         header,
		cumulativeWork: cumulative,
	}
	ft.nodes[header.Hash] = node
	parent.children = append(parent.children, header.Hash)

	ft.tip = ft.bestTipLocked()
	return nil
}

// bestTipLocked scans every known header and returns the one with the
// greatest cumulative work, tie-broken by lexicographically smallest hash.
// The fork set is small between finalizations so a linear scan is simplest
// and matches the rest of the tree's unindexed style.
func (ft *ForkTree) bestTipLocked() types.Hash {
	var best types.Hash
	var bestWork *big.Int

	for hash, node := range ft.nodes {
		if bestWork == nil {
			best, bestWork = hash, node.cumulativeWork
			continue
		}
		cmp := node.cumulativeWork.Cmp(bestWork)
		if cmp > 0 || (cmp == 0 && lexLess(hash, best)) {
			best, bestWork = hash, node.cumulativeWork
		}
	}
	return best
}

func lexLess(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Tip returns the current canonical tip header.
func (ft *ForkTree) Tip() types.BlockHeader {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.nodes[ft.tip].header
}

// Header returns a known header by hash.
func (ft *ForkTree) Header(hash types.Hash) (types.BlockHeader, bool) {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	node, exists := ft.nodes[hash]
	if !exists {
		return types.BlockHeader{}, false
	}
	return node.header, true
}

// Finalize prunes every branch that does not descend from hash, the way a
// chain finalizes a block once it is buried deep enough under the tip to be
// considered immutable. hash must already be known.
func (ft *ForkTree) Finalize(hash types.Hash) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if _, exists := ft.nodes[hash]; !exists {
		return ErrUnknownParent
	}

	keep := make(map[types.Hash]bool)
	ft.collectDescendants(hash, keep)

	for h := range ft.nodes {
		if !keep[h] {
			delete(ft.nodes, h)
		}
	}
	ft.finalized = hash
	return nil
}

func (ft *ForkTree) collectDescendants(hash types.Hash, keep map[types.Hash]bool) {
	keep[hash] = true
	node, exists := ft.nodes[hash]
	if !exists {
		return
	}
	for _, child := range node.children {
		ft.collectDescendants(child, keep)
	}
}

// Finalized returns the current finalized block hash.
func (ft *ForkTree) Finalized() types.Hash {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.finalized
}
