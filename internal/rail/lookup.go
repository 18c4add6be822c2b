// Package rail implements the per-region rail lookup cache: given a block
// coordinate it answers what rail exists there and which rails control
// vehicle movement through there, without re-running the expensive rail
// detectors on every query.
//
// Per rail block and type the cache stores the detected rail, the sign
// bindings activated by it, and the vehicles occupying it. Entries stay
// cached for as long as they are accessed and are validated against the
// region on a tick-countdown schedule.
//
// Not safe for concurrent use: all access must happen on the simulation
// loop goroutine.
package rail

import (
	"go.uber.org/zap"

	"github.com/railgrid/server/internal/world"
)

// Windows is the tick-countdown freshness configuration. A full access
// resets a life counter to LifeTicks; a cheap re-verification resets it to
// the shorter VerifyTicks. Passed explicitly at construction — the cache
// reads no ambient globals.
type Windows struct {
	// LifeTicks is the full freshness window granted on lookup or creation.
	LifeTicks int
	// VerifyTicks is the reduced window granted after re-verification.
	// Must be below LifeTicks.
	VerifyTicks int
}

// DefaultWindows matches the simulation's 20 ticks/second: cached facts are
// re-verified after a second of no full access.
var DefaultWindows = Windows{LifeTicks: 20, VerifyTicks: 15}

// Lookup is the rail cache of a single region. One instance per loaded
// region; discard it when the region unloads.
type Lookup struct {
	region   *world.Region
	registry *Registry
	signs    SignDiscovery
	windows  Windows
	log      *zap.Logger

	// cache maps a coordinate to the head of its bucket chain.
	cache map[world.Vec3]*Bucket
}

func NewLookup(region *world.Region, registry *Registry, signs SignDiscovery, windows Windows, log *zap.Logger) *Lookup {
	return &Lookup{
		region:   region,
		registry: registry,
		signs:    signs,
		windows:  windows,
		log:      log,
		cache:    make(map[world.Vec3]*Bucket),
	}
}

// Region returns the region this lookup caches for.
func (l *Lookup) Region() *world.Region { return l.region }

// Valid reports whether this lookup may still be used. It turns false when
// the backing region unloads; callers must stop querying then, this is not
// checked internally.
func (l *Lookup) Valid() bool {
	return l.region.Loaded()
}

// Size returns the number of coordinates with at least one cached bucket.
func (l *Lookup) Size() int {
	return len(l.cache)
}

// LookupRail finds or creates the bucket for an explicit (coordinate, rail
// type) pair. Used when the caller already knows which detector matched.
// Never fails; the rail type is taken at its word and not re-detected here.
func (l *Lookup) LookupRail(pos world.Vec3, t RailType) *Bucket {
	return l.lookupRailBucket(pos, t)
}

func (l *Lookup) lookupRailBucket(pos world.Vec3, t RailType) *Bucket {
	inCache, ok := l.cache[pos]
	if !ok {
		inCache = l.newBucket(pos, t)
		l.cache[pos] = inCache
		inCache.signs = l.signs.DiscoverSigns(inCache)
		return inCache // type matches, we just initialized it
	}

	// A NONE head was most likely created before the rail was detected.
	// Swap it out rather than chaining behind it, so the map holds no dead
	// NONE entries once real data is known. Because of this a NONE head
	// never carries a chain of its own.
	switch {
	case inCache.railType == t:
		inCache.railLife = l.windows.LifeTicks
		return inCache
	case inCache.railType == TypeNone:
		return inCache.swapOutNoneType(t)
	default:
		return inCache.findOrAppendToChain(t)
	}
}

// FindAtPosition finds or creates the rail buckets controlling vehicle
// movement through a position block, in detector priority order. Returns
// the shared empty result when no detector matches; that result is never
// cached as fresh, so the next call runs discovery again.
func (l *Lookup) FindAtPosition(pos world.Vec3) []*Bucket {
	// During computation the cached bucket may replace itself (NONE swap),
	// so resolve through the bucket, never hold the map value across it.
	if inCache, ok := l.cache[pos]; ok {
		return inCache.railsAtPosition()
	}

	// No bucket here yet. Starting from a NONE bucket would usually create
	// one just to throw it away: run discovery first and reuse a matching
	// rail bucket as the cache entry when the rail coincides with pos.
	return l.discoverAtPosition(pos)
}

// discoverAtPosition initializes the cache entry for a position block that
// had none, returning the controlling rail buckets found.
func (l *Lookup) discoverAtPosition(pos world.Vec3) []*Bucket {
	for _, t := range l.registry.Types() {
		rails := l.registry.findRails(t, l.region, pos)
		if len(rails) == 0 {
			continue
		}

		// The bucket that will represent pos in the cache map.
		var inCache *Bucket

		found := make([]*Bucket, 0, len(rails))
		for _, railPos := range rails {
			if railPos == pos {
				// Only one type is scanned here, so at most one bucket is
				// ever created for pos itself.
				inCache = l.newBucket(pos, t)
				found = append(found, inCache)
			} else {
				found = append(found, l.lookupRailBucket(railPos, t))
			}
		}

		// pos itself hosts no rail: represent it with a NONE bucket.
		if inCache == nil {
			inCache = l.newBucket(pos, TypeNone)
		}

		l.cache[pos] = inCache
		inCache.atPosition = found
		inCache.atPositionLife = l.windows.LifeTicks

		// Signs can only be computed once the bucket is registered.
		inCache.signs = l.signs.DiscoverSigns(inCache)

		return found
	}

	// No rails anywhere near. A NONE bucket remembers the miss; the empty
	// result forces rediscovery on the next call.
	l.cache[pos] = l.newBucket(pos, TypeNone)
	return noRailsAtPosition
}

// FindMembersOnRail returns the vehicles on the head bucket at a rail
// coordinate, or nil when nothing is cached there. Note that the same
// coordinate can host several rail types; per-bucket membership is the
// reliable source.
func (l *Lookup) FindMembersOnRail(pos world.Vec3) []Member {
	if b, ok := l.cache[pos]; ok {
		return b.members
	}
	return nil
}

// RemoveMemberFromAll removes a vehicle from every membership list in the
// cache. Used when a vehicle is destroyed or unregistered.
func (l *Lookup) RemoveMemberFromAll(m Member) {
	for _, head := range l.cache {
		for b := head; b != nil; b = b.next {
			b.RemoveMember(m)
		}
	}
}

// Update runs the per-tick eviction sweep. Every bucket ages by one tick;
// buckets whose life counters fall below deadTimeoutTicks are evicted
// unless vehicles occupy them. O(total buckets).
func (l *Lookup) Update(deadTimeoutTicks int) {
	l.refreshBuckets(func(b *Bucket) bool {
		b.decay()
		return b.checkStillValid(deadTimeoutTicks)
	})
}

// RefreshAll forces a re-discovery of everything: every bucket's derived
// caches are dropped and buckets without members are evicted immediately.
func (l *Lookup) RefreshAll() {
	l.refreshBuckets(func(b *Bucket) bool {
		b.railLife = 1
		b.atPositionLife = 0
		b.atPosition = noRailsAtPosition
		b.signs = nil
		return len(b.members) > 0
	})
}

// Clear evicts every bucket and empties the map. Membership information
// desynchronizes — occupying vehicles lose their cached rail binding — so
// prefer Update-driven eviction unless an immediate full reset is wanted.
func (l *Lookup) Clear() {
	for _, head := range l.cache {
		for b := head; b != nil; b = b.next {
			b.railLife = 0
		}
	}
	l.cache = make(map[world.Vec3]*Bucket)
}

// refreshBuckets applies a validity check to every bucket of every chain.
// Invalid heads are replaced by their first valid successor, or the map
// entry is dropped when the whole chain is dead. Valid heads keep their
// position while invalid buckets further down are spliced out. Every
// discarded bucket has its life forced to zero.
func (l *Lookup) refreshBuckets(valid func(*Bucket) bool) {
	for pos, head := range l.cache {
		if valid(head) {
			head.removeInvalidFromChain(valid)
			continue
		}
		b := head
		for {
			b.railLife = 0
			b = b.next
			if b == nil {
				delete(l.cache, pos)
				break
			}
			if valid(b) {
				b.removeInvalidFromChain(valid)
				l.cache[pos] = b
				break
			}
		}
	}
}
