package rail

import "github.com/railgrid/server/internal/world"

// TrackedSign binds an interaction sign to a rail bucket. The revision lets
// re-validation detect rewrites without comparing text.
type TrackedSign struct {
	Pos  world.Vec3
	Line string
	rev  uint64
}

// update re-reads the sign from the region. It refreshes the binding in
// place when the sign was rewritten, and reports removal when the sign is
// gone entirely.
func (s *TrackedSign) update(r *world.Region) (changed, removed bool) {
	line, rev, ok := r.SignAt(s.Pos)
	if !ok {
		return true, true
	}
	if rev == s.rev {
		return false, false
	}
	s.Line = line
	s.rev = rev
	return true, false
}

// SignDiscovery computes the ordered sign bindings for a rail bucket. Must
// be safely callable any time after the bucket's type is fixed, repeatedly.
type SignDiscovery interface {
	DiscoverSigns(b *Bucket) []TrackedSign
}

// ColumnSignScanner discovers signs by scanning the column of blocks above
// a rail block, up to a configured height.
type ColumnSignScanner struct {
	Region *world.Region
	Height int
}

func (c *ColumnSignScanner) DiscoverSigns(b *Bucket) []TrackedSign {
	signs := []TrackedSign{}
	if b.railType == TypeNone {
		return signs
	}
	pos := b.pos
	for i := 0; i < c.Height; i++ {
		pos = pos.Above()
		if line, rev, ok := c.Region.SignAt(pos); ok {
			signs = append(signs, TrackedSign{Pos: pos, Line: line, rev: rev})
		}
	}
	return signs
}
