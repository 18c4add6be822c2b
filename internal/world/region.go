package world

// BlockID identifies a block template by name ("RAIL", "SIGN_POST", ...).
// The empty string means air.
type BlockID string

const BlockAir BlockID = ""

// Region is the authoritative block state of one simulated region.
// Accessed only from the simulation loop goroutine — no locks needed.
type Region struct {
	ID     int32
	blocks map[Vec3]BlockID
	signs  map[Vec3]signEntry

	signRev  uint64
	unloaded bool
}

type signEntry struct {
	line string
	rev  uint64
}

func NewRegion(id int32) *Region {
	return &Region{
		ID:     id,
		blocks: make(map[Vec3]BlockID),
		signs:  make(map[Vec3]signEntry),
	}
}

// Loaded reports whether this region is still the active loaded instance.
// Once false, all cached lookups derived from it must stop being used.
func (r *Region) Loaded() bool {
	return !r.unloaded
}

// Unload marks the region as no longer active.
func (r *Region) Unload() {
	r.unloaded = true
}

func (r *Region) BlockAt(pos Vec3) BlockID {
	return r.blocks[pos]
}

func (r *Region) SetBlock(pos Vec3, id BlockID) {
	if id == BlockAir {
		delete(r.blocks, pos)
		return
	}
	r.blocks[pos] = id
}

// BlockCount returns the number of placed (non-air) blocks.
func (r *Region) BlockCount() int {
	return len(r.blocks)
}

// SetSign places or rewrites a sign line at a position. Every write bumps
// the sign's revision so cached sign bindings can detect the change.
func (r *Region) SetSign(pos Vec3, line string) {
	r.signRev++
	r.signs[pos] = signEntry{line: line, rev: r.signRev}
}

func (r *Region) RemoveSign(pos Vec3) {
	delete(r.signs, pos)
}

// SignAt returns the sign line and revision at a position, if a sign exists.
func (r *Region) SignAt(pos Vec3) (line string, rev uint64, ok bool) {
	e, ok := r.signs[pos]
	return e.line, e.rev, ok
}

func (r *Region) SignCount() int {
	return len(r.signs)
}
