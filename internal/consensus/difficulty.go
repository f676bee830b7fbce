package consensus

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/common"
	"github.com/veilchain/core/pkg/types"
)

// PoW errors.
var (
	ErrZeroMantissa  = errors.New("consensus: compact difficulty has zero mantissa")
	ErrPowBelowTarget = errors.New("consensus: seal work exceeds the difficulty target")
)

// CompactToTarget decodes a Bitcoin-style compact-bits difficulty into a
// 256-bit target: bits is [exponent:8][mantissa:24], target = mantissa *
// 2^(8*(exponent-3)). A zero mantissa is never a valid target.
func CompactToTarget(bits uint32) (*uint256.Int, error) {
	exponent := bits >> 24
	mantissa := bits & 0x00ff_ffff

	if mantissa == 0 {
		return nil, ErrZeroMantissa
	}
	if exponent > 32 {
		max := &uint256.Int{}
		return max.Not(max), nil
	}

	target := uint256.NewInt(uint64(mantissa))
	if exponent > 3 {
		target.Lsh(target, 8*(uint(exponent)-3))
	} else {
		target.Rsh(target, 8*(3-uint(exponent)))
	}
	return target, nil
}

// TargetToCompact encodes a 256-bit target back into compact-bits form.
func TargetToCompact(target *uint256.Int) uint32 {
	if target.IsZero() {
		return 0
	}

	bytes := target.Bytes32()
	exponent := uint32(32)
	start := 0
	for i, b := range bytes {
		if b != 0 {
			exponent = uint32(32 - i)
			start = i
			break
		}
	}

	var mantissa uint32
	mantissa = uint32(bytes[start]) << 16
	if start+1 < 32 {
		mantissa |= uint32(bytes[start+1]) << 8
	}
	if start+2 < 32 {
		mantissa |= uint32(bytes[start+2])
	}

	return (exponent << 24) | (mantissa & 0x00ff_ffff)
}

// ComputeWork computes the PoW seal hash work = blake3(pre_hash || nonce_le).
func ComputeWork(preHash types.Hash, nonce uint64) types.Hash {
	h := blake3.New()
	h.Write(preHash[:])
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)
	h.Write(nonceBytes[:])
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SealMeetsTarget reports whether a work hash satisfies the compact-bits
// difficulty target, comparing both as big-endian 256-bit integers.
func SealMeetsTarget(work types.Hash, bits uint32) bool {
	target, err := CompactToTarget(bits)
	if err != nil {
		return false
	}
	workValue := new(uint256.Int).SetBytes(work[:])
	return workValue.Cmp(target) <= 0
}

// VerifySeal recomputes the work hash from the pre-seal hash and nonce and
// checks it against the claimed difficulty.
func VerifySeal(preHash types.Hash, nonce uint64, bits uint32) (types.Hash, bool) {
	work := ComputeWork(preHash, nonce)
	return work, SealMeetsTarget(work, bits)
}

// DifficultyManager tracks recent block timestamps and retargets the
// compact-bits difficulty every window, clamping the adjustment ratio to
// ±4x per window the way the project's original task-based difficulty
// manager did, applied here directly to the PoW target rather than an
// abstract quality-weighted difficulty score.
type DifficultyManager struct {
	mu sync.Mutex

	targetBlockTime  uint64
	adjustmentWindow uint64

	blockTimes []uint64

	currentBits uint32
	minTarget   *uint256.Int
	maxTarget   *uint256.Int
}

// DifficultyConfig configures a DifficultyManager.
type DifficultyConfig struct {
	TargetBlockTime  uint64
	AdjustmentWindow uint64
	InitialBits      uint32
	MinTarget        *uint256.Int
	MaxTarget        *uint256.Int
}

// DefaultDifficultyConfig returns a starting configuration: a 15-second
// target block time, a 2016-block retarget window (Bitcoin's), and a
// generous target range.
func DefaultDifficultyConfig() *DifficultyConfig {
	minTarget := uint256.NewInt(1)
	minTarget.Lsh(minTarget, 200)

	maxTarget := &uint256.Int{}
	maxTarget.Not(maxTarget)

	return &DifficultyConfig{
		TargetBlockTime:  15,
		AdjustmentWindow: 2016,
		InitialBits:      TargetToCompact(minTarget),
		MinTarget:        uint256.NewInt(1),
		MaxTarget:        maxTarget,
	}
}

// NewDifficultyManager creates a difficulty manager, defaulting cfg if nil.
func NewDifficultyManager(cfg *DifficultyConfig) *DifficultyManager {
	if cfg == nil {
		cfg = DefaultDifficultyConfig()
	}
	return &DifficultyManager{
		targetBlockTime:  cfg.TargetBlockTime,
		adjustmentWindow: cfg.AdjustmentWindow,
		blockTimes:       make([]uint64, 0, cfg.AdjustmentWindow),
		currentBits:      cfg.InitialBits,
		minTarget:        cfg.MinTarget,
		maxTarget:        cfg.MaxTarget,
	}
}

// RecordBlock records a newly applied block's timestamp for the retarget
// window.
func (dm *DifficultyManager) RecordBlock(timestamp uint64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.blockTimes = append(dm.blockTimes, timestamp)
	if uint64(len(dm.blockTimes)) > dm.adjustmentWindow {
		dm.blockTimes = dm.blockTimes[1:]
	}
}

// CurrentBits returns the active compact-bits difficulty.
func (dm *DifficultyManager) CurrentBits() uint32 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.currentBits
}

// SetBits overrides the active difficulty, for loading from storage.
func (dm *DifficultyManager) SetBits(bits uint32) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.currentBits = bits
}

// AdjustDifficulty recomputes the compact-bits difficulty from the recorded
// window of block timestamps, clamping the per-window adjustment ratio to
// [0.25, 4.0] the same way the project's original retarget logic did.
func (dm *DifficultyManager) AdjustDifficulty() uint32 {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if len(dm.blockTimes) < 2 {
		return dm.currentBits
	}

	first := dm.blockTimes[0]
	last := dm.blockTimes[len(dm.blockTimes)-1]
	elapsed := last - first
	if elapsed == 0 {
		return dm.currentBits
	}

	numBlocks := uint64(len(dm.blockTimes) - 1)
	avgBlockTime := elapsed / numBlocks

	ratio := common.ClampFloat(float64(avgBlockTime)/float64(dm.targetBlockTime), 0.25, 4.0)

	target, err := CompactToTarget(dm.currentBits)
	if err != nil {
		return dm.currentBits
	}

	// ratio > 1 means blocks are arriving too slowly: the target must grow
	// (easier). ratio < 1 means too fast: the target must shrink (harder).
	adjusted := new(big.Float).SetInt(target.ToBig())
	adjusted.Mul(adjusted, big.NewFloat(ratio))

	newTargetBig, _ := adjusted.Int(nil)
	if newTargetBig.Sign() < 0 {
		newTargetBig.SetInt64(0)
	}
	newTarget, overflow := uint256.FromBig(newTargetBig)
	if overflow {
		newTarget = dm.maxTarget.Clone()
	}

	if newTarget.Cmp(dm.minTarget) < 0 {
		newTarget = dm.minTarget.Clone()
	}
	if newTarget.Cmp(dm.maxTarget) > 0 {
		newTarget = dm.maxTarget.Clone()
	}

	dm.currentBits = TargetToCompact(newTarget)
	return dm.currentBits
}
