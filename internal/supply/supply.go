// Package supply implements the native asset's emission schedule and the
// running supply digest bound into every block header's SupplyDigest field.
package supply

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/types"
)

// Token supply constants.
const (
	// MaxSupply is the maximum native-asset supply (210 million, 8 decimals).
	MaxSupply uint64 = 210_000_000 * 1e8

	// InitialBlockReward is the initial reward per block.
	InitialBlockReward uint64 = 50 * 1e8

	// HalvingInterval is the number of blocks between halvings.
	HalvingInterval uint64 = 2_100_000

	// TailEmission is the minimum block reward once halving bottoms out.
	TailEmission uint64 = 100_000 // 0.001 in base units

	// TokenDecimals is the number of decimal places.
	TokenDecimals = 8
)

// Tokenomics errors.
var (
	ErrMaxSupplyReached = errors.New("maximum supply reached")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// SupplyManager tracks circulating supply and mint/burn totals, and derives
// the running supply digest committed into each block header.
type SupplyManager struct {
	mu sync.RWMutex

	circulatingSupply uint64
	totalMinted       uint64
	totalBurned       uint64
	currentHeight     uint64
	digest            types.Hash

	store SupplyStore
}

// SupplyStore defines persistence for supply data.
type SupplyStore interface {
	GetCirculatingSupply() (uint64, error)
	SetCirculatingSupply(supply uint64) error
	GetTotalMinted() (uint64, error)
	SetTotalMinted(minted uint64) error
	GetTotalBurned() (uint64, error)
	SetTotalBurned(burned uint64) error
}

// NewSupplyManager creates a new supply manager, loading prior state from
// store if one is given.
func NewSupplyManager(store SupplyStore) *SupplyManager {
	sm := &SupplyManager{store: store}

	if store != nil {
		if supply, err := store.GetCirculatingSupply(); err == nil {
			sm.circulatingSupply = supply
		}
		if minted, err := store.GetTotalMinted(); err == nil {
			sm.totalMinted = minted
		}
		if burned, err := store.GetTotalBurned(); err == nil {
			sm.totalBurned = burned
		}
	}

	return sm
}

// CalculateBlockReward returns the block subsidy at a given height, halving
// every HalvingInterval blocks and floored at TailEmission.
func CalculateBlockReward(height uint64) uint64 {
	halvings := height / HalvingInterval
	if halvings >= 32 {
		return TailEmission
	}

	reward := InitialBlockReward >> halvings
	if reward < TailEmission {
		return TailEmission
	}
	return reward
}

// MintReward mints new tokens as a block reward, clamped to MaxSupply, and
// folds the delta into the running supply digest.
func (sm *SupplyManager) MintReward(height uint64, amount uint64) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.circulatingSupply+amount > MaxSupply {
		if sm.circulatingSupply >= MaxSupply {
			return ErrMaxSupplyReached
		}
		amount = MaxSupply - sm.circulatingSupply
	}

	sm.circulatingSupply += amount
	sm.totalMinted += amount
	sm.currentHeight = height
	sm.digest = nextDigest(sm.digest, height, int64(amount))

	if sm.store != nil {
		if err := sm.store.SetCirculatingSupply(sm.circulatingSupply); err != nil {
			return err
		}
		if err := sm.store.SetTotalMinted(sm.totalMinted); err != nil {
			return err
		}
	}

	return nil
}

// Burn removes tokens from circulation and folds the delta into the digest.
func (sm *SupplyManager) Burn(height uint64, amount uint64) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if amount > sm.circulatingSupply {
		return ErrInvalidAmount
	}

	sm.circulatingSupply -= amount
	sm.totalBurned += amount
	sm.currentHeight = height
	sm.digest = nextDigest(sm.digest, height, -int64(amount))

	if sm.store != nil {
		if err := sm.store.SetCirculatingSupply(sm.circulatingSupply); err != nil {
			return err
		}
		if err := sm.store.SetTotalBurned(sm.totalBurned); err != nil {
			return err
		}
	}

	return nil
}

// Digest returns the current running supply digest, the value a block
// header's SupplyDigest field commits to after applying this height's
// native-asset mint/burn deltas.
func (sm *SupplyManager) Digest() types.Hash {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.digest
}

// nextDigest folds a signed native-asset delta into the running digest:
// digest' = blake3(digest || height_be || delta_be). Mirrors the header's
// StateRoot (consensus computeStateRoot, chained from the parent's root) in
// using a plain hash chain rather than an accumulator structure, since the digest
// only needs to attest to cumulative net flow, not support membership
// proofs over individual deltas.
func nextDigest(prev types.Hash, height uint64, delta int64) types.Hash {
	var buf [48]byte
	copy(buf[:32], prev[:])
	binary.BigEndian.PutUint64(buf[32:40], height)
	binary.BigEndian.PutUint64(buf[40:48], uint64(delta))

	sum := blake3.Sum256(buf[:])
	return types.Hash(sum)
}

// GetCirculatingSupply returns the current circulating supply.
func (sm *SupplyManager) GetCirculatingSupply() uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.circulatingSupply
}

// GetTotalMinted returns the total minted amount.
func (sm *SupplyManager) GetTotalMinted() uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.totalMinted
}

// GetTotalBurned returns the total burned amount.
func (sm *SupplyManager) GetTotalBurned() uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.totalBurned
}

// CalculateHalvingBlock returns the height of the next halving.
func CalculateHalvingBlock(currentHeight uint64) uint64 {
	currentHalving := currentHeight / HalvingInterval
	return (currentHalving + 1) * HalvingInterval
}

// GetHalvingCount returns the number of halvings that have occurred by height.
func GetHalvingCount(height uint64) uint64 {
	return height / HalvingInterval
}

// FormatAmount formats a raw base-unit amount to a human-readable string.
func FormatAmount(amount uint64) string {
	whole := amount / 1e8
	frac := amount % 1e8
	return formatWithDecimals(whole, frac)
}

func formatWithDecimals(whole uint64, frac uint64) string {
	if frac == 0 {
		return formatUint(whole)
	}
	for frac > 0 && frac%10 == 0 {
		frac /= 10
	}
	return formatUint(whole) + "." + formatUint(frac)
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 20)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// ParseAmount parses a human-readable amount into raw base units.
func ParseAmount(s string) (uint64, error) {
	var whole, frac uint64
	decimals := 0
	inFrac := false

	for _, c := range s {
		if c == '.' {
			if inFrac {
				return 0, ErrInvalidAmount
			}
			inFrac = true
			continue
		}

		if c < '0' || c > '9' {
			return 0, ErrInvalidAmount
		}

		digit := uint64(c - '0')

		if inFrac {
			if decimals >= TokenDecimals {
				continue
			}
			frac = frac*10 + digit
			decimals++
		} else {
			whole = whole*10 + digit
		}
	}

	for decimals < TokenDecimals {
		frac *= 10
		decimals++
	}

	return whole*1e8 + frac, nil
}

// ProjectedSupplyAtHeight calculates the projected circulating supply at a
// given future height, assuming no burns.
func ProjectedSupplyAtHeight(targetHeight uint64) uint64 {
	var supply uint64
	currentHalving := uint64(0)

	for height := uint64(0); height < targetHeight; {
		nextHalving := (currentHalving + 1) * HalvingInterval
		if nextHalving > targetHeight {
			nextHalving = targetHeight
		}

		blocksInPeriod := nextHalving - height
		reward := CalculateBlockReward(height)
		supply += reward * blocksInPeriod

		if supply > MaxSupply {
			return MaxSupply
		}

		height = nextHalving
		currentHalving++
	}

	return supply
}

// EmissionEntry describes one halving period of the emission schedule.
type EmissionEntry struct {
	HalvingNumber  uint64
	BlockStart     uint64
	BlockEnd       uint64
	RewardPerBlock uint64
	TotalEmission  uint64
}

// GetEmissionSchedule returns the full emission schedule up to tail emission.
func GetEmissionSchedule() []EmissionEntry {
	schedule := make([]EmissionEntry, 0)

	for halving := uint64(0); halving < 32; halving++ {
		reward := CalculateBlockReward(halving * HalvingInterval)
		if reward <= TailEmission {
			break
		}

		periodEmission := reward * HalvingInterval

		schedule = append(schedule, EmissionEntry{
			HalvingNumber:  halving,
			BlockStart:     halving * HalvingInterval,
			BlockEnd:       (halving+1)*HalvingInterval - 1,
			RewardPerBlock: reward,
			TotalEmission:  periodEmission,
		})
	}

	return schedule
}
