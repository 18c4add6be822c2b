package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/railgrid/server/internal/rail"
	"github.com/railgrid/server/internal/world"
)

func newRailWorld(t *testing.T) (*world.Region, *rail.Lookup) {
	t.Helper()
	region := world.NewRegion(1)
	registry := rail.NewRegistry(zap.NewNop())
	registry.Register(rail.NewBlockSetType("standard", []world.BlockID{"RAIL"}))
	lookup := rail.NewLookup(region, registry,
		&rail.ColumnSignScanner{Region: region, Height: 2},
		rail.DefaultWindows, zap.NewNop())
	return region, lookup
}

func TestMovementTransfersMembership(t *testing.T) {
	region, lookup := newRailWorld(t)
	for x := 0; x < 5; x++ {
		region.SetBlock(world.Vec3{X: x, Y: 64, Z: 0}, "RAIL")
	}

	fleet := world.NewFleet()
	cart := world.NewCart(world.Vec3{X: 0, Y: 64, Z: 0}, world.Vec3{X: 1})
	fleet.Add(cart)

	mv := NewMovementSystem(fleet, lookup, zap.NewNop())
	mv.Update(time.Millisecond)

	first := lookup.FindMembersOnRail(world.Vec3{X: 0, Y: 64, Z: 0})
	require.Equal(t, []rail.Member{cart}, first)
	require.Equal(t, world.Vec3{X: 1, Y: 64, Z: 0}, cart.Pos)

	mv.Update(time.Millisecond)

	require.Empty(t, lookup.FindMembersOnRail(world.Vec3{X: 0, Y: 64, Z: 0}),
		"membership must move with the cart")
	require.Equal(t, []rail.Member{cart},
		lookup.FindMembersOnRail(world.Vec3{X: 1, Y: 64, Z: 0}))
}

func TestMovementReleasesDerailedCart(t *testing.T) {
	region, lookup := newRailWorld(t)
	region.SetBlock(world.Vec3{X: 0, Y: 64, Z: 0}, "RAIL")

	fleet := world.NewFleet()
	cart := world.NewCart(world.Vec3{X: 0, Y: 64, Z: 0}, world.Vec3{X: 1})
	fleet.Add(cart)

	mv := NewMovementSystem(fleet, lookup, zap.NewNop())
	mv.Update(time.Millisecond) // steps off the single rail block
	mv.Update(time.Millisecond) // now derailed

	require.Empty(t, lookup.FindMembersOnRail(world.Vec3{X: 0, Y: 64, Z: 0}))
	require.Equal(t, world.Vec3{X: 1, Y: 64, Z: 0}, cart.Pos, "derailed carts stop")
}

func TestDetachRemovesCartEverywhere(t *testing.T) {
	region, lookup := newRailWorld(t)
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	region.SetBlock(pos, "RAIL")

	fleet := world.NewFleet()
	cart := world.NewCart(pos, world.Vec3{})
	fleet.Add(cart)

	mv := NewMovementSystem(fleet, lookup, zap.NewNop())
	mv.Update(time.Millisecond)
	require.NotEmpty(t, lookup.FindMembersOnRail(pos))

	fleet.Remove(cart)
	mv.Detach(cart)
	require.Empty(t, lookup.FindMembersOnRail(pos))
}

func TestOccupiedRailSurvivesSweeps(t *testing.T) {
	region, lookup := newRailWorld(t)
	pos := world.Vec3{X: 0, Y: 64, Z: 0}
	region.SetBlock(pos, "RAIL")

	fleet := world.NewFleet()
	cart := world.NewCart(pos, world.Vec3{})
	fleet.Add(cart)

	mv := NewMovementSystem(fleet, lookup, zap.NewNop())
	sweep := NewCacheSweepSystem(lookup, 2)

	mv.Update(time.Millisecond)

	// Stop querying entirely; only the sweep keeps running.
	for i := 0; i < 100; i++ {
		sweep.Update(time.Millisecond)
	}
	require.NotEmpty(t, lookup.FindMembersOnRail(pos),
		"an occupied rail bucket must never be evicted")
}
