package rail

import (
	"go.uber.org/zap"

	"github.com/railgrid/server/internal/world"
)

// noRailsAtPosition is the shared "no controlling rails known" result.
// It is deliberately never treated as fresh: a later at-position lookup on
// a bucket holding it re-runs discovery, because absence of track is the
// condition most likely to change (track tends to get placed after a
// region first loads).
var noRailsAtPosition = []*Bucket{}

// Bucket is one cache node: a (coordinate, rail type) pair plus everything
// derived from it. Buckets for different rail types at the same coordinate
// form a singly linked chain; only the chain head is reachable from the
// lookup map.
type Bucket struct {
	owner    *Lookup
	pos      world.Vec3
	railType RailType

	// next holds the bucket for another rail type at the same coordinate.
	// Buckets past the head are never used for at-position lookups.
	next *Bucket

	// railLife counts down the ticks this bucket's rail info stays trusted.
	// Zero means the bucket was evicted from the cache map and must never
	// be treated as current again.
	railLife int

	// atPositionLife counts down the ticks the atPosition result stays
	// trusted without re-verifying each referenced bucket. Not zeroed on
	// eviction: reaching this bucket already required a cache lookup.
	atPositionLife int

	// atPosition caches the rail buckets controlling movement through this
	// bucket's coordinate, in detector order.
	atPosition []*Bucket

	// signs holds the sign bindings of this rail. nil means "not computed,
	// or the rail was invalid when signs were last needed" and forces a
	// recompute on next use; a non-nil empty slice means "computed, none".
	signs []TrackedSign

	// members are the vehicles currently occupying this rail. Unordered.
	// A bucket with members is never evicted.
	members []Member
}

func (l *Lookup) newBucket(pos world.Vec3, t RailType) *Bucket {
	return &Bucket{
		owner:      l,
		pos:        pos,
		railType:   t,
		railLife:   l.windows.LifeTicks,
		atPosition: noRailsAtPosition,
	}
}

func (b *Bucket) Pos() world.Vec3 { return b.pos }
func (b *Bucket) Type() RailType  { return b.railType }

// Next returns the bucket for the next rail type sharing this coordinate,
// or nil at the end of the chain.
func (b *Bucket) Next() *Bucket { return b.next }

// Signs returns the computed sign bindings, or nil if they are uncomputed.
func (b *Bucket) Signs() []TrackedSign { return b.signs }

// Members returns the vehicles occupying this rail. The slice is owned by
// the bucket; callers must not retain it across ticks.
func (b *Bucket) Members() []Member { return b.members }

// AddMember registers a vehicle as occupying this rail. Adding a member
// pins the bucket in the cache until the member leaves or unloads.
func (b *Bucket) AddMember(m Member) {
	for _, existing := range b.members {
		if existing == m {
			return
		}
	}
	b.members = append(b.members, m)
}

// RemoveMember unregisters a vehicle from this rail.
func (b *Bucket) RemoveMember(m Member) {
	for i, existing := range b.members {
		if existing == m {
			b.members[i] = b.members[len(b.members)-1]
			b.members = b.members[:len(b.members)-1]
			return
		}
	}
}

// decay ages both life counters by one tick. Natural aging stops at 1:
// zero is reserved for eviction, so a stale-but-mapped bucket is never
// mistaken for an evicted one.
func (b *Bucket) decay() {
	if b.railLife > 1 {
		b.railLife--
	}
	if b.atPositionLife > 0 {
		b.atPositionLife--
	}
}

// checkStillValid reports whether this bucket should survive an eviction
// sweep. Recently accessed buckets survive. Stale buckets survive only
// while vehicles occupy them; unloaded vehicles found during the check are
// purged inline. A stale bucket kept alive by members has its derived
// caches dropped so nothing serves expired data from it.
func (b *Bucket) checkStillValid(timeoutTicks int) bool {
	if b.railLife >= timeoutTicks || b.atPositionLife >= timeoutTicks {
		return true
	}
	if len(b.members) == 0 {
		return false
	}

	// Purge unloaded members, if any. An unloaded vehicle cannot leave the
	// rail on its own, so it would pin this bucket forever.
	for i := 0; i < len(b.members); i++ {
		if b.members[i].Unloaded() {
			b.members[i] = b.members[len(b.members)-1]
			b.members = b.members[:len(b.members)-1]
			i--
			b.owner.log.Warn("purged unloaded vehicle from rail cache",
				zap.Int32("region", b.owner.region.ID),
				zap.String("pos", b.pos.String()),
			)
		}
	}
	if len(b.members) == 0 {
		return false
	}

	// Kept alive only by occupancy: everything derived is expired.
	b.atPositionLife = 0
	b.atPosition = noRailsAtPosition
	b.signs = nil
	return true
}

// swapOutNoneType replaces this NONE bucket with a bucket of a concrete
// rail type at the same coordinate, updating the cache map to point at the
// replacement. The at-position cache carries over. Callers iterating with a
// reference to the old bucket must continue with the returned one.
func (b *Bucket) swapOutNoneType(t RailType) *Bucket {
	nb := b.owner.newBucket(b.pos, t)
	nb.atPosition = b.atPosition
	if len(b.members) == 0 {
		// Unlikely to be needed again; drop it.
		b.railLife = 0
	} else {
		// Members would lose their coordinate binding if the old bucket
		// vanished. Keep it behind the new one until it expires naturally.
		nb.next = b
	}
	b.owner.cache[b.pos] = nb
	return nb
}

// findOrAppendToChain walks the next chain for a bucket of the given rail
// type, appending a new one at the tail if none exists. This bucket's own
// type is not checked.
func (b *Bucket) findOrAppendToChain(t RailType) *Bucket {
	current := b
	for {
		next := current.next
		if next == nil {
			nb := b.owner.newBucket(b.pos, t)
			current.next = nb
			nb.signs = b.owner.signs.DiscoverSigns(nb)
			return nb
		}
		if next.railType == t {
			next.railLife = b.owner.windows.LifeTicks
			return next
		}
		current = next
	}
}

// removeInvalidFromChain splices out and kills every bucket past this one
// that fails the validity check.
func (b *Bucket) removeInvalidFromChain(valid func(*Bucket) bool) {
	curr := b
	for curr.next != nil {
		next := curr.next
		if valid(next) {
			curr = next
		} else {
			next.railLife = 0
			curr.next = next.next
		}
	}
}

// railsAtPosition returns, verifying or recomputing as needed, the rail
// buckets that control movement through this bucket's coordinate.
func (b *Bucket) railsAtPosition() []*Bucket {
	if b.atPositionLife >= b.owner.windows.LifeTicks {
		return b.atPosition
	}
	b.atPositionLife = b.owner.windows.VerifyTicks

	curr := b.atPosition
	if len(curr) == 0 {
		return b.computeRailsAtPosition()
	}
	for _, piece := range curr {
		if !piece.Verify() {
			return b.computeRailsAtPosition()
		}
	}
	return curr
}

// computeRailsAtPosition runs the detector scan for this bucket's
// coordinate and caches the result.
//
// Reentrancy hazard: when a detector reports a rail at this very
// coordinate and this bucket is NONE, the bucket replaces itself mid-scan.
// The current reference is threaded forward explicitly; operating on the
// original receiver past that point would mutate an abandoned bucket.
func (b *Bucket) computeRailsAtPosition() []*Bucket {
	l := b.owner
	for _, t := range l.registry.Types() {
		rails := l.registry.findRails(t, l.region, b.pos)
		if len(rails) == 0 {
			continue
		}

		inCache := b
		inCacheType := inCache.railType

		found := make([]*Bucket, 0, len(rails))
		for _, railPos := range rails {
			if railPos == b.pos {
				switch {
				case inCacheType == t:
					found = append(found, inCache)
				case inCacheType == TypeNone:
					inCache = inCache.swapOutNoneType(t)
					inCacheType = t
					found = append(found, inCache)
				default:
					found = append(found, inCache.findOrAppendToChain(t))
				}
			} else {
				// A different coordinate: plain cache lookup, this bucket
				// cannot get replaced by it.
				found = append(found, l.lookupRailBucket(railPos, t))
			}
		}

		inCache.atPosition = found
		return found
	}

	// No detector matched. The shared empty result triggers a fresh
	// discovery on the next at-position lookup.
	b.atPosition = noRailsAtPosition
	return noRailsAtPosition
}

// Verify checks that this bucket still describes a real rail, refreshing
// its sign bindings along the way. Returns false when the bucket was
// evicted or its rail no longer exists, in which case the caller must
// rediscover.
func (b *Bucket) Verify() bool {
	if b.railLife >= b.owner.windows.LifeTicks {
		return true // refreshed this tick already
	}
	if b.railLife == 0 {
		return false // evicted, another lookup required
	}

	b.railLife = b.owner.windows.VerifyTicks

	if !b.owner.registry.isRailAt(b.railType, b.owner.region, b.pos) {
		// Rail is gone. Mark the signs uncomputed so they are rebuilt in
		// full if the rail ever comes back.
		b.signs = nil
		return false
	}

	if b.signs == nil {
		b.signs = b.owner.signs.DiscoverSigns(b)
		return true
	}
	for i := range b.signs {
		changed, removed := b.signs[i].update(b.owner.region)
		if !changed {
			continue
		}
		if removed {
			// A fully removed sign usually means broader structural
			// change; rebuild the whole set.
			b.signs = b.owner.signs.DiscoverSigns(b)
			break
		}
	}
	return true
}
