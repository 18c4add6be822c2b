package rail

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/railgrid/server/internal/world"
)

func TestAddMemberIsIdempotent(t *testing.T) {
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	rt := railAt("rail-t", pos)
	l := newTestLookup(t, rt)

	b := l.LookupRail(pos, rt)
	m := &stubMember{}
	b.AddMember(m)
	b.AddMember(m)
	require.Len(t, b.Members(), 1)

	b.RemoveMember(m)
	require.Empty(t, b.Members())
	b.RemoveMember(m) // no-op
}

func TestRemoveInvalidFromChainSplicesMiddle(t *testing.T) {
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	a := railAt("rail-a", pos)
	b := railAt("rail-b", pos)
	c := railAt("rail-c", pos)
	l := newTestLookup(t, a, b, c)

	head := l.LookupRail(pos, a)
	middle := l.LookupRail(pos, b)
	tail := l.LookupRail(pos, c)

	head.removeInvalidFromChain(func(bk *Bucket) bool { return bk != middle })

	require.Same(t, tail, head.Next(), "middle bucket must be spliced out")
	require.Nil(t, tail.Next())
	require.Equal(t, 0, middle.railLife)
}

func TestSweepPromotesValidSuccessorToHead(t *testing.T) {
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	a := railAt("rail-a", pos)
	b := railAt("rail-b", pos)
	l := newTestLookup(t, a, b)

	head := l.LookupRail(pos, a)
	successor := l.LookupRail(pos, b)

	// Keep the successor alive by occupancy, expire the head.
	successor.AddMember(&stubMember{})
	for i := 0; i < 25; i++ {
		l.Update(2)
	}

	require.Equal(t, 1, l.Size())
	require.Same(t, successor, l.cache[pos], "successor becomes the chain head")
	require.Nil(t, successor.Next())
	require.Equal(t, 0, head.railLife)
}

func TestSweepDropsChainWhenAllDead(t *testing.T) {
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	a := railAt("rail-a", pos)
	b := railAt("rail-b", pos)
	l := newTestLookup(t, a, b)

	head := l.LookupRail(pos, a)
	successor := l.LookupRail(pos, b)

	for i := 0; i < 25; i++ {
		l.Update(2)
	}

	require.Equal(t, 0, l.Size())
	require.Equal(t, 0, head.railLife)
	require.Equal(t, 0, successor.railLife)
}

// signLookup builds a lookup whose sign discovery scans the block column
// above each rail in a real region.
func signLookup(t *testing.T, region *world.Region, types ...RailType) *Lookup {
	t.Helper()
	registry := NewRegistry(zap.NewNop())
	for _, rt := range types {
		registry.Register(rt)
	}
	scanner := &ColumnSignScanner{Region: region, Height: 2}
	return NewLookup(region, registry, scanner, DefaultWindows, zap.NewNop())
}

func TestColumnSignScannerOrder(t *testing.T) {
	region := world.NewRegion(1)
	pos := world.Vec3{X: 5, Y: 64, Z: 5}
	region.SetBlock(pos, "RAIL")
	region.SetSign(pos.Above(), "station alpha")
	region.SetSign(pos.Above().Above(), "speed 2")

	std := NewBlockSetType("standard", []world.BlockID{"RAIL"})
	l := signLookup(t, region, std)

	b := l.LookupRail(pos, std)
	signs := b.Signs()
	require.Len(t, signs, 2)
	require.Equal(t, "station alpha", signs[0].Line)
	require.Equal(t, "speed 2", signs[1].Line)
}

func TestVerifyRefreshesRewrittenSign(t *testing.T) {
	region := world.NewRegion(1)
	pos := world.Vec3{X: 5, Y: 64, Z: 5}
	signPos := pos.Above()
	region.SetBlock(pos, "RAIL")
	region.SetSign(signPos, "speed 1")

	std := NewBlockSetType("standard", []world.BlockID{"RAIL"})
	l := signLookup(t, region, std)

	b := l.LookupRail(pos, std)
	require.Equal(t, "speed 1", b.Signs()[0].Line)

	region.SetSign(signPos, "speed 4")
	b.railLife = 5 // out of the fresh window, not evicted

	require.True(t, b.Verify())
	require.Equal(t, "speed 4", b.Signs()[0].Line,
		"rewritten sign must be refreshed in place")
}

func TestVerifyRecomputesWhenSignRemoved(t *testing.T) {
	region := world.NewRegion(1)
	pos := world.Vec3{X: 5, Y: 64, Z: 5}
	region.SetBlock(pos, "RAIL")
	region.SetSign(pos.Above(), "station alpha")
	region.SetSign(pos.Above().Above(), "speed 2")

	std := NewBlockSetType("standard", []world.BlockID{"RAIL"})
	l := signLookup(t, region, std)

	b := l.LookupRail(pos, std)
	require.Len(t, b.Signs(), 2)

	region.RemoveSign(pos.Above())
	b.railLife = 5

	require.True(t, b.Verify())
	require.Len(t, b.Signs(), 1, "removed sign triggers a full recompute")
	require.Equal(t, "speed 2", b.Signs()[0].Line)
}

func TestVerifyRecomputesUncomputedSigns(t *testing.T) {
	region := world.NewRegion(1)
	pos := world.Vec3{X: 5, Y: 64, Z: 5}
	region.SetBlock(pos, "RAIL")

	std := NewBlockSetType("standard", []world.BlockID{"RAIL"})
	l := signLookup(t, region, std)

	b := l.LookupRail(pos, std)
	b.signs = nil // as left behind by a failed verify
	b.railLife = 5

	region.SetSign(pos.Above(), "resume")
	require.True(t, b.Verify())
	require.Len(t, b.Signs(), 1)
	require.Equal(t, "resume", b.Signs()[0].Line)
}

func TestComputedEmptySignsAreNotUncomputed(t *testing.T) {
	region := world.NewRegion(1)
	pos := world.Vec3{X: 5, Y: 64, Z: 5}
	region.SetBlock(pos, "RAIL")

	std := NewBlockSetType("standard", []world.BlockID{"RAIL"})
	l := signLookup(t, region, std)

	b := l.LookupRail(pos, std)
	require.NotNil(t, b.Signs(), "no signs found still counts as computed")
	require.Empty(t, b.Signs())
}
