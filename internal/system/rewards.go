package system

import (
	"math/rand"
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/persist"
	"go.uber.org/zap"
)

// DropRoller rolls a drop table. *scripting.Engine implements it.
type DropRoller interface {
	RollDrops(items []data.DropItem, day int) []data.Drop
}

// RandomRoller is the built-in roll used when no script engine is loaded.
type RandomRoller struct {
	rng *rand.Rand
}

func NewRandomRoller(seed int64) *RandomRoller {
	return &RandomRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomRoller) RollDrops(items []data.DropItem, _ int) []data.Drop {
	var out []data.Drop
	for _, it := range items {
		if r.rng.Intn(1000000) >= it.Chance {
			continue
		}
		n := it.Min
		if it.Max > it.Min {
			n += r.rng.Intn(it.Max - it.Min + 1)
		}
		if n > 0 {
			out = append(out, data.Drop{ItemID: it.ItemID, Count: n})
		}
	}
	return out
}

// KillLedger persists kill records. *persist.Ledger implements it.
type KillLedger interface {
	Record(r persist.KillRecord) bool
}

// Rewards is the ai.RewardSink of the server: it rolls the dead agent's drop
// table and hands the kill to the ledger.
type Rewards struct {
	drops  *data.DropTable
	roller DropRoller
	ledger KillLedger
	day    int

	granted uint64
	exp     uint64
	items   uint64

	log *zap.Logger
}

var _ ai.RewardSink = (*Rewards)(nil)

func NewRewards(drops *data.DropTable, roller DropRoller, ledger KillLedger, log *zap.Logger) *Rewards {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewards{drops: drops, roller: roller, ledger: ledger, log: log.Named("rewards")}
}

// SetDay sets the game day passed to the roller and stamped on records.
func (r *Rewards) SetDay(n int) { r.day = n }

func (r *Rewards) Granted() uint64 { return r.granted }
func (r *Rewards) Exp() uint64     { return r.exp }
func (r *Rewards) Items() uint64   { return r.items }

func (r *Rewards) Reward(k ai.Kill) {
	var drops []data.Drop
	if items := r.drops.Get(k.DropTable); len(items) > 0 && r.roller != nil {
		drops = r.roller.RollDrops(items, r.day)
	}

	r.granted++
	r.exp += uint64(k.RewardExp)
	for _, d := range drops {
		r.items += uint64(d.Count)
	}
	r.log.Debug("kill rewarded",
		zap.Stringer("agent", k.Agent),
		zap.Stringer("killer", k.Killer),
		zap.Int("exp", k.RewardExp),
		zap.Int("drops", len(drops)),
	)

	if r.ledger == nil {
		return
	}
	r.ledger.Record(persist.KillRecord{
		Agent:     k.Agent,
		Archetype: k.Archetype,
		SpawnID:   k.SpawnID,
		Killer:    k.Killer,
		RewardExp: k.RewardExp,
		Day:       r.day,
		Position:  k.Position,
		Drops:     drops,
		At:        time.Now(),
	})
}
