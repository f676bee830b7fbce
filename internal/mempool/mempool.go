// Package mempool implements the pending-transaction pool: admission,
// fee-rate priority ordering, nullifier-conflict rejection, anchor-sharing
// batch assembly and data-availability chunking for block production.
package mempool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/types"
)

// Mempool errors.
var (
	ErrPoolFull        = errors.New("mempool is full")
	ErrTxAlreadyExists = errors.New("transaction already in mempool")
	ErrInsufficientFee = errors.New("insufficient transaction fee")
	ErrNullifierConflict = errors.New("nullifier conflicts with a transaction already in the pool")
	ErrInvalidProof    = errors.New("invalid zk-SNARK proof")
)

// Mempool manages pending shielded transactions.
type Mempool struct {
	mu sync.RWMutex

	txs   map[types.Hash]*MempoolTx
	queue []*MempoolTx

	// nullifiers indexes every nullifier currently claimed by a pooled
	// transaction, to reject same-nullifier conflicts before they ever
	// reach consensus admission.
	nullifiers map[types.Hash]types.Hash

	maxSize       int
	minFee        uint64
	maxTxPerBlock int
}

// MempoolTx wraps a transaction with pool metadata.
type MempoolTx struct {
	Tx        *types.Transaction
	AddedAt   uint64
	Priority  float64 // fee / size, the pool's sole ordering key
	Size      int
	Validated bool
}

// Config holds mempool configuration.
type Config struct {
	MaxSize       int
	MinFee        uint64
	MaxTxPerBlock int
}

// DefaultConfig returns the default mempool configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSize:       10000,
		MinFee:        1,
		MaxTxPerBlock: 1000,
	}
}

// NewMempool creates a new transaction mempool.
func NewMempool(cfg *Config) *Mempool {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Mempool{
		txs:           make(map[types.Hash]*MempoolTx),
		queue:         make([]*MempoolTx, 0),
		nullifiers:    make(map[types.Hash]types.Hash),
		maxSize:       cfg.MaxSize,
		minFee:        cfg.MinFee,
		maxTxPerBlock: cfg.MaxTxPerBlock,
	}
}

// Add admits a transaction into the pool.
func (m *Mempool) Add(tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.txs[tx.TxHash]; exists {
		return ErrTxAlreadyExists
	}

	if len(m.txs) >= m.maxSize {
		if !m.evictLowestPriority(tx.Fee) {
			return ErrPoolFull
		}
	}

	if tx.Fee < m.minFee {
		return ErrInsufficientFee
	}

	for _, nullifier := range tx.Nullifiers {
		if _, exists := m.nullifiers[nullifier]; exists {
			return ErrNullifierConflict
		}
	}

	size := estimateTxSize(tx)
	priority := float64(tx.Fee) / float64(size)

	mpt := &MempoolTx{
		Tx:       tx,
		AddedAt:  uint64(time.Now().Unix()),
		Priority: priority,
		Size:     size,
	}

	m.txs[tx.TxHash] = mpt
	for _, nullifier := range tx.Nullifiers {
		m.nullifiers[nullifier] = tx.TxHash
	}
	m.insertIntoQueue(mpt)

	return nil
}

// Remove drops a transaction from the pool.
func (m *Mempool) Remove(txHash types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(txHash)
}

func (m *Mempool) removeLocked(txHash types.Hash) {
	mpt, exists := m.txs[txHash]
	if !exists {
		return
	}

	delete(m.txs, txHash)
	for _, nullifier := range mpt.Tx.Nullifiers {
		delete(m.nullifiers, nullifier)
	}
	m.removeFromQueue(txHash)
}

// Get retrieves a pooled transaction by hash.
func (m *Mempool) Get(txHash types.Hash) *types.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mpt, exists := m.txs[txHash]; exists {
		return mpt.Tx
	}
	return nil
}

// Has reports whether a transaction is pooled.
func (m *Mempool) Has(txHash types.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.txs[txHash]
	return exists
}

// HasNullifier reports whether a nullifier is claimed by a pooled
// transaction.
func (m *Mempool) HasNullifier(nullifier types.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.nullifiers[nullifier]
	return exists
}

// SelectTransactions selects up to maxCount transactions within maxSize
// bytes for block assembly, preferring transactions that share the block's
// most common anchor: a batch proof only folds transaction proofs that
// were proven against the same commitment-tree root, so maximizing the
// anchor-sharing subset minimizes wasted candidates once the batch circuit
// is invoked.
func (m *Mempool) SelectTransactions(maxCount int, maxSize int) []*types.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxCount > m.maxTxPerBlock {
		maxCount = m.maxTxPerBlock
	}

	anchorCounts := make(map[types.Hash]int, len(m.queue))
	for _, mpt := range m.queue {
		anchorCounts[mpt.Tx.Anchor]++
	}
	var dominantAnchor types.Hash
	best := -1
	for anchor, count := range anchorCounts {
		if count > best {
			best = count
			dominantAnchor = anchor
		}
	}

	selected := make([]*types.Transaction, 0, maxCount)
	totalSize := 0
	usedNullifiers := make(map[types.Hash]bool)

	selectFrom := func(preferDominant bool) {
		for _, mpt := range m.queue {
			if len(selected) >= maxCount {
				return
			}
			if preferDominant && mpt.Tx.Anchor != dominantAnchor {
				continue
			}
			if !preferDominant && mpt.Tx.Anchor == dominantAnchor {
				continue
			}
			if alreadySelected(selected, mpt.Tx.TxHash) {
				continue
			}
			if totalSize+mpt.Size > maxSize {
				continue
			}

			conflict := false
			for _, nullifier := range mpt.Tx.Nullifiers {
				if usedNullifiers[nullifier] {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}

			selected = append(selected, mpt.Tx)
			totalSize += mpt.Size
			for _, nullifier := range mpt.Tx.Nullifiers {
				usedNullifiers[nullifier] = true
			}
		}
	}

	selectFrom(true)
	selectFrom(false)

	return selected
}

func alreadySelected(selected []*types.Transaction, hash types.Hash) bool {
	for _, tx := range selected {
		if tx.TxHash == hash {
			return true
		}
	}
	return false
}

// RemoveConfirmed drops transactions that were confirmed in block, along
// with anything still pooled that now conflicts with a spent nullifier.
func (m *Mempool) RemoveConfirmed(block *types.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range block.Transactions {
		m.removeLocked(tx.TxHash)

		for _, nullifier := range tx.Nullifiers {
			if conflictingTxHash, exists := m.nullifiers[nullifier]; exists {
				m.removeLocked(conflictingTxHash)
			}
		}
	}
}

// Size returns the number of pooled transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// TotalFees returns the sum of fees across all pooled transactions.
func (m *Mempool) TotalFees() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total uint64
	for _, mpt := range m.txs {
		total += mpt.Tx.Fee
	}
	return total
}

// Pending returns every pooled transaction in priority order.
func (m *Mempool) Pending() []*types.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := make([]*types.Transaction, 0, len(m.queue))
	for _, mpt := range m.queue {
		txs = append(txs, mpt.Tx)
	}
	return txs
}

func (m *Mempool) insertIntoQueue(mpt *MempoolTx) {
	idx := sort.Search(len(m.queue), func(i int) bool {
		return m.queue[i].Priority < mpt.Priority
	})

	m.queue = append(m.queue, nil)
	copy(m.queue[idx+1:], m.queue[idx:])
	m.queue[idx] = mpt
}

func (m *Mempool) removeFromQueue(txHash types.Hash) {
	for i, mpt := range m.queue {
		if mpt.Tx.TxHash == txHash {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

func (m *Mempool) evictLowestPriority(newFee uint64) bool {
	if len(m.queue) == 0 {
		return false
	}

	lowest := m.queue[len(m.queue)-1]
	if newFee > lowest.Tx.Fee {
		m.removeLocked(lowest.Tx.TxHash)
		return true
	}
	return false
}

func estimateTxSize(tx *types.Transaction) int {
	size := 100
	size += len(tx.Nullifiers) * types.HashSize
	size += len(tx.Commitments) * types.HashSize
	size += len(tx.Proof.ProofData)
	size += len(tx.Memo)
	return size
}

// Validate runs a transaction's zk-SNARK proof through verifier and marks
// it validated on success.
func (m *Mempool) Validate(ctx context.Context, tx *types.Transaction, verifier ProofVerifier) error {
	if !verifier.Verify(ctx, tx) {
		return ErrInvalidProof
	}

	m.mu.Lock()
	if mpt, exists := m.txs[tx.TxHash]; exists {
		mpt.Validated = true
	}
	m.mu.Unlock()

	return nil
}

// ProofVerifier abstracts zk-SNARK verification so the pool does not
// depend directly on the circuit manager; internal/zkp.ShieldedPool
// satisfies it via a thin adapter at wiring time.
type ProofVerifier interface {
	Verify(ctx context.Context, tx *types.Transaction) bool
}

// DAChunkSize is the target size in bytes of one data-availability chunk.
const DAChunkSize = 4096

// ChunkForDA splits a selected block's transaction payload into
// fixed-size data-availability chunks and returns the chunks alongside the
// block's DataAvailabilityRoot: blake3 over the concatenation of each
// chunk's own blake3 digest.
func ChunkForDA(txs []*types.Transaction) (chunks [][]byte, root types.Hash) {
	var payload []byte
	for _, tx := range txs {
		payload = append(payload, tx.TxHash[:]...)
		payload = append(payload, tx.Proof.ProofData...)
	}

	for len(payload) > 0 {
		take := DAChunkSize
		if len(payload) < take {
			take = len(payload)
		}
		chunks = append(chunks, payload[:take])
		payload = payload[take:]
	}

	h := blake3.New()
	for _, chunk := range chunks {
		sum := blake3.Sum256(chunk)
		h.Write(sum[:])
	}
	copy(root[:], h.Sum(nil))
	return chunks, root
}
