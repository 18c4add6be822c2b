package rail

import "github.com/railgrid/server/internal/world"

// BlockSetType is the table-driven rail type: a rail of this type exists
// wherever the region block is in its configured block set. Movement
// through a position block is controlled by a rail at the position itself
// or directly below it (a vehicle riding up a slope still sits in the
// block above its rail).
type BlockSetType struct {
	name   string
	blocks map[world.BlockID]struct{}
}

func NewBlockSetType(name string, blocks []world.BlockID) *BlockSetType {
	set := make(map[world.BlockID]struct{}, len(blocks))
	for _, id := range blocks {
		set[id] = struct{}{}
	}
	return &BlockSetType{name: name, blocks: set}
}

func (t *BlockSetType) Name() string { return t.name }

func (t *BlockSetType) IsRailAt(r *world.Region, pos world.Vec3) bool {
	_, ok := t.blocks[r.BlockAt(pos)]
	return ok
}

func (t *BlockSetType) FindRails(r *world.Region, pos world.Vec3) []world.Vec3 {
	var rails []world.Vec3
	if t.IsRailAt(r, pos) {
		rails = append(rails, pos)
	}
	if below := pos.Below(); t.IsRailAt(r, below) {
		rails = append(rails, below)
	}
	return rails
}
