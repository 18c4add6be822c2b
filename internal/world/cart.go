package world

import "sync/atomic"

// cartIDCounter generates unique object IDs for carts.
// Starts high to avoid collision with block-template and sign IDs.
var cartIDCounter atomic.Int32

func init() {
	cartIDCounter.Store(700_000_000)
}

// NextCartID returns a unique object ID for a cart.
func NextCartID() int32 {
	return cartIDCounter.Add(1)
}

// Cart is a rail vehicle. Not persisted — exists only in memory while its
// region is loaded.
type Cart struct {
	ID       int32
	Pos      Vec3
	Dir      Vec3 // unit step applied each movement tick
	unloaded bool
}

func NewCart(pos, dir Vec3) *Cart {
	return &Cart{ID: NextCartID(), Pos: pos, Dir: dir}
}

// Unloaded reports whether the cart has been removed from the simulation.
// Cached rail membership referring to an unloaded cart is stale and gets
// purged by the cache's validity checks.
func (c *Cart) Unloaded() bool {
	return c.unloaded
}

// Unload removes the cart from the simulation without notifying the caches
// that reference it.
func (c *Cart) Unload() {
	c.unloaded = true
}

// Fleet tracks all carts in one region. Simulation loop goroutine only.
type Fleet struct {
	carts []*Cart
}

func NewFleet() *Fleet {
	return &Fleet{}
}

func (f *Fleet) Add(c *Cart) {
	f.carts = append(f.carts, c)
}

// Remove takes a cart out of the fleet and marks it unloaded.
func (f *Fleet) Remove(c *Cart) {
	for i, other := range f.carts {
		if other == c {
			f.carts[i] = f.carts[len(f.carts)-1]
			f.carts = f.carts[:len(f.carts)-1]
			break
		}
	}
	c.unloaded = true
}

// All invokes fn for every cart in the fleet.
func (f *Fleet) All(fn func(*Cart)) {
	for _, c := range f.carts {
		fn(c)
	}
}

func (f *Fleet) Count() int {
	return len(f.carts)
}
