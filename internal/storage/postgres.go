// Package storage implements the PostgreSQL persistence layer for the
// veilchain core: block headers and transactions on the canonical
// single-parent chain, the nullifier set, the commitment tree's compact
// snapshot, epoch headers, and the running supply digest.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilchain/core/internal/epoch"
	"github.com/veilchain/core/internal/zkp"
	"github.com/veilchain/core/pkg/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrInvalidData  = errors.New("invalid data")
	ErrDBConnection = errors.New("database connection error")
)

// PostgresStore implements persistent storage using PostgreSQL. It also
// satisfies zkp.NullifierStore and supply.SupplyStore, so a single store
// backs the chain, the nullifier set and the supply manager.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "veilchain",
		Password: "",
		Database: "veilchain",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Schema is the DDL applied by a fresh node on first start. Migrations
// beyond this initial shape are out of scope; operators managing an
// upgrade path should run their own migration tool against these tables.
const Schema = `
CREATE TABLE IF NOT EXISTS blocks (
	hash                      BYTEA PRIMARY KEY,
	version                   INTEGER NOT NULL,
	parent_hash               BYTEA NOT NULL,
	proof_commitment          BYTEA NOT NULL,
	version_commitment        BYTEA NOT NULL,
	fee_commitment            BYTEA NOT NULL,
	da_root                   BYTEA NOT NULL,
	nullifier_root            BYTEA NOT NULL,
	commitment_root           BYTEA NOT NULL,
	state_root                BYTEA NOT NULL,
	validator_set_commitment  BYTEA NOT NULL,
	supply_digest             BYTEA NOT NULL,
	difficulty                BIGINT NOT NULL,
	nonce                     BIGINT NOT NULL,
	timestamp                 BIGINT NOT NULL,
	height                    BIGINT NOT NULL,
	recursive_proof           BYTEA,
	is_main_chain             BOOLEAN NOT NULL DEFAULT FALSE,
	extra_data                BYTEA
);
CREATE INDEX IF NOT EXISTS idx_blocks_parent ON blocks (parent_hash);
CREATE INDEX IF NOT EXISTS idx_blocks_height ON blocks (height);

CREATE TABLE IF NOT EXISTS transactions (
	tx_hash       BYTEA PRIMARY KEY,
	block_hash    BYTEA NOT NULL REFERENCES blocks(hash),
	tx_index      INTEGER NOT NULL,
	version       INTEGER NOT NULL,
	anchor        BYTEA NOT NULL,
	nullifiers    BYTEA[] NOT NULL,
	commitments   BYTEA[] NOT NULL,
	balance_tag   BYTEA NOT NULL,
	fee           BIGINT NOT NULL,
	proof         BYTEA NOT NULL,
	public_inputs BYTEA[] NOT NULL,
	memo          BYTEA
);
CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions (block_hash);

CREATE TABLE IF NOT EXISTS nullifiers (
	nullifier    BYTEA PRIMARY KEY,
	tx_hash      BYTEA NOT NULL,
	block_height BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS commitment_tree_snapshot (
	id            BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	depth         INTEGER NOT NULL,
	history_limit INTEGER NOT NULL,
	leaf_count    BIGINT NOT NULL,
	root          BYTEA NOT NULL,
	frontier      BYTEA[] NOT NULL,
	root_history  BYTEA[] NOT NULL,
	leaves        BYTEA[] NOT NULL
);

CREATE TABLE IF NOT EXISTS epoch_headers (
	epoch_number          BIGINT PRIMARY KEY,
	start_block           BIGINT NOT NULL,
	end_block             BIGINT NOT NULL,
	proof_root            BYTEA NOT NULL,
	state_root            BYTEA NOT NULL,
	nullifier_set_root    BYTEA NOT NULL,
	commitment_tree_root  BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS supply_state (
	id                 BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	circulating_supply BIGINT NOT NULL DEFAULT 0,
	total_minted       BIGINT NOT NULL DEFAULT 0,
	total_burned       BIGINT NOT NULL DEFAULT 0
);
`

// ============================================
// Block Operations
// ============================================

// SaveBlock saves a block and its transactions to the database.
func (s *PostgresStore) SaveBlock(ctx context.Context, block *types.Block) error {
	header := block.Header

	query := `
		INSERT INTO blocks (
			hash, version, parent_hash, proof_commitment, version_commitment,
			fee_commitment, da_root, nullifier_root, commitment_root, state_root,
			validator_set_commitment, supply_digest, difficulty, nonce, timestamp,
			height, recursive_proof, is_main_chain, extra_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (hash) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		header.Hash[:],
		header.Version,
		header.ParentHash[:],
		header.ProofCommitment[:],
		header.VersionCommitment[:],
		header.FeeCommitment[:],
		header.DataAvailabilityRoot[:],
		header.NullifierRoot[:],
		header.CommitmentRoot[:],
		header.StateRoot[:],
		header.ValidatorSetCommitment[:],
		header.SupplyDigest[:],
		header.Difficulty,
		header.Nonce,
		header.Timestamp,
		header.Height,
		nullIfEmptySlice(block.RecursiveProof),
		false, // is_main_chain
		header.ExtraData,
	)

	if err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}

	for i, tx := range block.Transactions {
		if err := s.saveTransaction(ctx, tx, header.Hash, i); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
	}

	return nil
}

// GetBlock retrieves a complete block by hash.
func (s *PostgresStore) GetBlock(ctx context.Context, hash types.Hash) (*types.Block, error) {
	header, recursiveProof, err := s.getBlockHeaderAndProof(ctx, hash)
	if err != nil {
		return nil, err
	}

	txs, err := s.getBlockTransactions(ctx, hash)
	if err != nil {
		return nil, err
	}

	return &types.Block{
		Header:         header,
		Transactions:   txs,
		RecursiveProof: recursiveProof,
	}, nil
}

// GetBlockHeader retrieves a block header by hash.
func (s *PostgresStore) GetBlockHeader(ctx context.Context, hash types.Hash) (*types.BlockHeader, error) {
	header, _, err := s.getBlockHeaderAndProof(ctx, hash)
	return header, err
}

func (s *PostgresStore) getBlockHeaderAndProof(ctx context.Context, hash types.Hash) (*types.BlockHeader, []byte, error) {
	query := `
		SELECT hash, version, parent_hash, proof_commitment, version_commitment,
			   fee_commitment, da_root, nullifier_root, commitment_root, state_root,
			   validator_set_commitment, supply_digest, difficulty, nonce, timestamp,
			   height, recursive_proof, extra_data
		FROM blocks WHERE hash = $1
	`

	var header types.BlockHeader
	var hashBytes, parentHash, proofCommitment, versionCommitment, feeCommitment,
		daRoot, nullifierRoot, commitmentRoot, stateRoot, validatorSetCommitment,
		supplyDigest, recursiveProof, extraData []byte

	err := s.pool.QueryRow(ctx, query, hash[:]).Scan(
		&hashBytes,
		&header.Version,
		&parentHash,
		&proofCommitment,
		&versionCommitment,
		&feeCommitment,
		&daRoot,
		&nullifierRoot,
		&commitmentRoot,
		&stateRoot,
		&validatorSetCommitment,
		&supplyDigest,
		&header.Difficulty,
		&header.Nonce,
		&header.Timestamp,
		&header.Height,
		&recursiveProof,
		&extraData,
	)

	if err == pgx.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get block header: %w", err)
	}

	copy(header.Hash[:], hashBytes)
	copy(header.ParentHash[:], parentHash)
	copy(header.ProofCommitment[:], proofCommitment)
	copy(header.VersionCommitment[:], versionCommitment)
	copy(header.FeeCommitment[:], feeCommitment)
	copy(header.DataAvailabilityRoot[:], daRoot)
	copy(header.NullifierRoot[:], nullifierRoot)
	copy(header.CommitmentRoot[:], commitmentRoot)
	copy(header.StateRoot[:], stateRoot)
	copy(header.ValidatorSetCommitment[:], validatorSetCommitment)
	copy(header.SupplyDigest[:], supplyDigest)
	header.ExtraData = extraData

	return &header, recursiveProof, nil
}

// GetBlocksByHeight returns all headers at a given height.
func (s *PostgresStore) GetBlocksByHeight(ctx context.Context, height uint64) ([]*types.BlockHeader, error) {
	query := `SELECT hash FROM blocks WHERE height = $1`

	rows, err := s.pool.Query(ctx, query, height)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []*types.BlockHeader
	for rows.Next() {
		var hashBytes []byte
		if err := rows.Scan(&hashBytes); err != nil {
			return nil, err
		}

		var hash types.Hash
		copy(hash[:], hashBytes)

		header, err := s.GetBlockHeader(ctx, hash)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}

	return headers, nil
}

// GetChildren returns the hashes of blocks whose parent is hash.
func (s *PostgresStore) GetChildren(ctx context.Context, hash types.Hash) ([]types.Hash, error) {
	query := `SELECT hash FROM blocks WHERE parent_hash = $1`

	rows, err := s.pool.Query(ctx, query, hash[:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []types.Hash
	for rows.Next() {
		var hashBytes []byte
		if err := rows.Scan(&hashBytes); err != nil {
			return nil, err
		}

		var childHash types.Hash
		copy(childHash[:], hashBytes)
		children = append(children, childHash)
	}

	return children, nil
}

// GetMainChain returns main-chain headers in height order.
func (s *PostgresStore) GetMainChain(ctx context.Context, fromHeight, toHeight uint64) ([]*types.BlockHeader, error) {
	query := `
		SELECT hash FROM blocks
		WHERE is_main_chain = TRUE AND height >= $1 AND height <= $2
		ORDER BY height ASC
	`

	rows, err := s.pool.Query(ctx, query, fromHeight, toHeight)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []*types.BlockHeader
	for rows.Next() {
		var hashBytes []byte
		if err := rows.Scan(&hashBytes); err != nil {
			return nil, err
		}

		var hash types.Hash
		copy(hash[:], hashBytes)

		header, err := s.GetBlockHeader(ctx, hash)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}

	return headers, nil
}

// UpdateMainChain updates main-chain status for blocks, e.g. after a fork
// choice reorg moves the canonical tip.
func (s *PostgresStore) UpdateMainChain(ctx context.Context, onChain, offChain []types.Hash) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, hash := range onChain {
		_, err := tx.Exec(ctx, "UPDATE blocks SET is_main_chain = TRUE WHERE hash = $1", hash[:])
		if err != nil {
			return err
		}
	}

	for _, hash := range offChain {
		_, err := tx.Exec(ctx, "UPDATE blocks SET is_main_chain = FALSE WHERE hash = $1", hash[:])
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetTip returns the main-chain block with the greatest height.
func (s *PostgresStore) GetTip(ctx context.Context) (types.Hash, error) {
	query := `SELECT hash FROM blocks WHERE is_main_chain = TRUE ORDER BY height DESC LIMIT 1`

	var hashBytes []byte
	err := s.pool.QueryRow(ctx, query).Scan(&hashBytes)
	if err == pgx.ErrNoRows {
		return types.Hash{}, ErrNotFound
	}
	if err != nil {
		return types.Hash{}, err
	}

	var hash types.Hash
	copy(hash[:], hashBytes)
	return hash, nil
}

// ============================================
// Transaction Operations
// ============================================

func (s *PostgresStore) saveTransaction(ctx context.Context, tx *types.Transaction, blockHash types.Hash, index int) error {
	query := `
		INSERT INTO transactions (
			tx_hash, block_hash, tx_index, version, anchor, nullifiers, commitments,
			balance_tag, fee, proof, public_inputs, memo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tx_hash) DO UPDATE SET block_hash = $2, tx_index = $3
	`

	nullifiers := make([][]byte, len(tx.Nullifiers))
	for i, n := range tx.Nullifiers {
		nullifiers[i] = n[:]
	}

	commitments := make([][]byte, len(tx.Commitments))
	for i, c := range tx.Commitments {
		commitments[i] = c[:]
	}

	publicInputs := make([][]byte, len(tx.Proof.PublicInputs))
	for i, p := range tx.Proof.PublicInputs {
		publicInputs[i] = p[:]
	}

	_, err := s.pool.Exec(ctx, query,
		tx.TxHash[:],
		blockHash[:],
		index,
		tx.Version,
		tx.Anchor[:],
		nullifiers,
		commitments,
		tx.BalanceTag[:],
		tx.Fee,
		tx.Proof.ProofData,
		publicInputs,
		tx.Memo,
	)

	return err
}

func (s *PostgresStore) getBlockTransactions(ctx context.Context, blockHash types.Hash) ([]*types.Transaction, error) {
	query := `
		SELECT tx_hash, version, anchor, nullifiers, commitments, balance_tag,
			   fee, proof, public_inputs, memo
		FROM transactions WHERE block_hash = $1
		ORDER BY tx_index ASC
	`

	rows, err := s.pool.Query(ctx, query, blockHash[:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*types.Transaction
	for rows.Next() {
		var tx types.Transaction
		var txHash, anchor, balanceTag []byte
		var nullifiers, commitments, publicInputs [][]byte

		if err := rows.Scan(
			&txHash,
			&tx.Version,
			&anchor,
			&nullifiers,
			&commitments,
			&balanceTag,
			&tx.Fee,
			&tx.Proof.ProofData,
			&publicInputs,
			&tx.Memo,
		); err != nil {
			return nil, err
		}

		copy(tx.TxHash[:], txHash)
		copy(tx.Anchor[:], anchor)
		copy(tx.BalanceTag[:], balanceTag)

		tx.Nullifiers = make([]types.Hash, len(nullifiers))
		for i, n := range nullifiers {
			copy(tx.Nullifiers[i][:], n)
		}

		tx.Commitments = make([]types.Hash, len(commitments))
		for i, c := range commitments {
			copy(tx.Commitments[i][:], c)
		}

		tx.Proof.PublicInputs = make([]types.Hash, len(publicInputs))
		for i, p := range publicInputs {
			copy(tx.Proof.PublicInputs[i][:], p)
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

// ============================================
// Nullifier Store (zkp.NullifierStore)
// ============================================

// HasNullifier reports whether nullifier has already been recorded as spent.
func (s *PostgresStore) HasNullifier(ctx context.Context, nullifier zkp.Commitment) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM nullifiers WHERE nullifier = $1)", nullifier[:]).Scan(&exists)
	return exists, err
}

// AddNullifier records nullifier as spent by txHash at blockHeight.
func (s *PostgresStore) AddNullifier(ctx context.Context, nullifier zkp.Commitment, txHash [32]byte, blockHeight uint64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nullifiers (nullifier, tx_hash, block_height) VALUES ($1, $2, $3)
		 ON CONFLICT (nullifier) DO NOTHING`,
		nullifier[:], txHash[:], blockHeight,
	)
	return err
}

// GetNullifierInfo returns the recorded spend for nullifier, or ErrNotFound.
func (s *PostgresStore) GetNullifierInfo(ctx context.Context, nullifier zkp.Commitment) (*zkp.NullifierInfo, error) {
	var txHash []byte
	var height uint64
	err := s.pool.QueryRow(ctx,
		"SELECT tx_hash, block_height FROM nullifiers WHERE nullifier = $1", nullifier[:],
	).Scan(&txHash, &height)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	info := &zkp.NullifierInfo{Nullifier: nullifier, BlockHeight: height}
	copy(info.TxHash[:], txHash)
	return info, nil
}

// ============================================
// Commitment Tree Snapshot
// ============================================

// SaveCommitmentTreeSnapshot persists the commitment tree's compact
// representation, overwriting the single stored row.
func (s *PostgresStore) SaveCommitmentTreeSnapshot(ctx context.Context, snap zkp.CompactSnapshot) error {
	frontier := make([][]byte, len(snap.Frontier))
	for i, c := range snap.Frontier {
		frontier[i] = c[:]
	}
	history := make([][]byte, len(snap.RootHistory))
	for i, c := range snap.RootHistory {
		history[i] = c[:]
	}
	leaves := make([][]byte, len(snap.Leaves))
	for i, c := range snap.Leaves {
		leaves[i] = c[:]
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO commitment_tree_snapshot (id, depth, history_limit, leaf_count, root, frontier, root_history, leaves)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			depth = $1, history_limit = $2, leaf_count = $3, root = $4,
			frontier = $5, root_history = $6, leaves = $7
	`, snap.Depth, snap.HistoryLimit, snap.LeafCount, snap.Root[:], frontier, history, leaves)
	return err
}

// LoadCommitmentTreeSnapshot returns the persisted commitment tree snapshot,
// or ErrNotFound if the node has never saved one.
func (s *PostgresStore) LoadCommitmentTreeSnapshot(ctx context.Context) (*zkp.CompactSnapshot, error) {
	var snap zkp.CompactSnapshot
	var root []byte
	var frontier, history, leaves [][]byte

	err := s.pool.QueryRow(ctx, `
		SELECT depth, history_limit, leaf_count, root, frontier, root_history, leaves
		FROM commitment_tree_snapshot WHERE id = TRUE
	`).Scan(&snap.Depth, &snap.HistoryLimit, &snap.LeafCount, &root, &frontier, &history, &leaves)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	copy(snap.Root[:], root)
	snap.Frontier = bytesToCommitments(frontier)
	snap.RootHistory = bytesToCommitments(history)
	snap.Leaves = bytesToCommitments(leaves)
	return &snap, nil
}

func bytesToCommitments(raw [][]byte) []zkp.Commitment {
	out := make([]zkp.Commitment, len(raw))
	for i, b := range raw {
		copy(out[i][:], b)
	}
	return out
}

// ============================================
// Epoch Headers
// ============================================

// SaveEpoch persists a closed epoch's header.
func (s *PostgresStore) SaveEpoch(ctx context.Context, e epoch.Epoch) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO epoch_headers (
			epoch_number, start_block, end_block, proof_root, state_root,
			nullifier_set_root, commitment_tree_root
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (epoch_number) DO UPDATE SET
			proof_root = $4, state_root = $5, nullifier_set_root = $6, commitment_tree_root = $7
	`, e.EpochNumber, e.StartBlock, e.EndBlock, e.ProofRoot[:], e.StateRoot[:],
		e.NullifierSetRoot[:], e.CommitmentTreeRoot[:])
	return err
}

// GetEpoch retrieves a previously saved epoch header by number.
func (s *PostgresStore) GetEpoch(ctx context.Context, epochNumber uint64) (*epoch.Epoch, error) {
	var e epoch.Epoch
	var proofRoot, stateRoot, nullifierRoot, commitmentRoot []byte

	err := s.pool.QueryRow(ctx, `
		SELECT epoch_number, start_block, end_block, proof_root, state_root,
			   nullifier_set_root, commitment_tree_root
		FROM epoch_headers WHERE epoch_number = $1
	`, epochNumber).Scan(&e.EpochNumber, &e.StartBlock, &e.EndBlock,
		&proofRoot, &stateRoot, &nullifierRoot, &commitmentRoot)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	copy(e.ProofRoot[:], proofRoot)
	copy(e.StateRoot[:], stateRoot)
	copy(e.NullifierSetRoot[:], nullifierRoot)
	copy(e.CommitmentTreeRoot[:], commitmentRoot)
	return &e, nil
}

// ============================================
// Supply Store (supply.SupplyStore)
// ============================================

// GetCirculatingSupply returns the persisted circulating supply.
func (s *PostgresStore) GetCirculatingSupply() (uint64, error) {
	return s.supplyField(context.Background(), "circulating_supply")
}

// SetCirculatingSupply persists the circulating supply.
func (s *PostgresStore) SetCirculatingSupply(supply uint64) error {
	return s.setSupplyField(context.Background(), "circulating_supply", supply)
}

// GetTotalMinted returns the persisted total minted.
func (s *PostgresStore) GetTotalMinted() (uint64, error) {
	return s.supplyField(context.Background(), "total_minted")
}

// SetTotalMinted persists the total minted.
func (s *PostgresStore) SetTotalMinted(minted uint64) error {
	return s.setSupplyField(context.Background(), "total_minted", minted)
}

// GetTotalBurned returns the persisted total burned.
func (s *PostgresStore) GetTotalBurned() (uint64, error) {
	return s.supplyField(context.Background(), "total_burned")
}

// SetTotalBurned persists the total burned.
func (s *PostgresStore) SetTotalBurned(burned uint64) error {
	return s.setSupplyField(context.Background(), "total_burned", burned)
}

func (s *PostgresStore) supplyField(ctx context.Context, column string) (uint64, error) {
	var value uint64
	query := fmt.Sprintf("SELECT %s FROM supply_state WHERE id = TRUE", column)
	err := s.pool.QueryRow(ctx, query).Scan(&value)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return value, err
}

func (s *PostgresStore) setSupplyField(ctx context.Context, column string, value uint64) error {
	query := fmt.Sprintf(`
		INSERT INTO supply_state (id, %s) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET %s = $1
	`, column, column)
	_, err := s.pool.Exec(ctx, query, value)
	return err
}

// ============================================
// Helper Functions
// ============================================

func nullIfEmptySlice(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
