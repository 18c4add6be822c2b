package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/railgrid/server/internal/rail"
	"github.com/railgrid/server/internal/world"
)

// MovementSystem advances every cart one step per tick along its heading,
// resolving the controlling rail through the lookup cache and keeping rail
// membership in sync as carts move between rail blocks.
type MovementSystem struct {
	fleet  *world.Fleet
	lookup *rail.Lookup
	log    *zap.Logger

	// occupied tracks which rail bucket each cart was last registered on.
	occupied map[*world.Cart]*rail.Bucket
}

func NewMovementSystem(fleet *world.Fleet, lookup *rail.Lookup, log *zap.Logger) *MovementSystem {
	return &MovementSystem{
		fleet:    fleet,
		lookup:   lookup,
		log:      log,
		occupied: make(map[*world.Cart]*rail.Bucket),
	}
}

func (s *MovementSystem) Phase() Phase { return PhaseUpdate }

func (s *MovementSystem) Update(_ time.Duration) {
	if !s.lookup.Valid() {
		return
	}
	s.fleet.All(func(c *world.Cart) {
		rails := s.lookup.FindAtPosition(c.Pos)
		if len(rails) == 0 {
			// Derailed: no track controls this position. Stay put and keep
			// querying; track may get placed under the cart.
			s.release(c)
			return
		}

		// The highest-priority rail controls movement.
		controlling := rails[0]
		if prev := s.occupied[c]; prev != controlling {
			if prev != nil {
				prev.RemoveMember(c)
			}
			controlling.AddMember(c)
			s.occupied[c] = controlling
		}

		c.Pos = c.Pos.Add(c.Dir.X, c.Dir.Y, c.Dir.Z)
	})
}

// Detach removes a cart from the rails entirely, e.g. when it is destroyed.
func (s *MovementSystem) Detach(c *world.Cart) {
	s.lookup.RemoveMemberFromAll(c)
	delete(s.occupied, c)
}

func (s *MovementSystem) release(c *world.Cart) {
	if prev := s.occupied[c]; prev != nil {
		prev.RemoveMember(c)
		delete(s.occupied, c)
	}
}
