package persist

import (
	"context"
)

// PlacedBlock is a row from the region_blocks table.
type PlacedBlock struct {
	X, Y, Z int
	Block   string
}

// PlacedSign is a row from the region_signs table.
type PlacedSign struct {
	X, Y, Z int
	Line    string
}

// LayoutRepo loads the authoritative track layout of a region. The rail
// cache itself is never persisted; only the world state it is rebuilt from.
type LayoutRepo struct {
	db *DB
}

func NewLayoutRepo(db *DB) *LayoutRepo {
	return &LayoutRepo{db: db}
}

// LoadRegion loads all placed blocks and signs of one region. Called at
// startup before the simulation loop begins.
func (r *LayoutRepo) LoadRegion(ctx context.Context, regionID int32) ([]PlacedBlock, []PlacedSign, error) {
	blockRows, err := r.db.Pool.Query(ctx,
		`SELECT x, y, z, block
		 FROM region_blocks WHERE region_id = $1
		 ORDER BY y, z, x`, regionID)
	if err != nil {
		return nil, nil, err
	}
	defer blockRows.Close()

	var blocks []PlacedBlock
	for blockRows.Next() {
		var b PlacedBlock
		if err := blockRows.Scan(&b.X, &b.Y, &b.Z, &b.Block); err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, b)
	}
	if err := blockRows.Err(); err != nil {
		return nil, nil, err
	}

	signRows, err := r.db.Pool.Query(ctx,
		`SELECT x, y, z, line
		 FROM region_signs WHERE region_id = $1
		 ORDER BY y, z, x`, regionID)
	if err != nil {
		return nil, nil, err
	}
	defer signRows.Close()

	var signs []PlacedSign
	for signRows.Next() {
		var s PlacedSign
		if err := signRows.Scan(&s.X, &s.Y, &s.Z, &s.Line); err != nil {
			return nil, nil, err
		}
		signs = append(signs, s)
	}
	if err := signRows.Err(); err != nil {
		return nil, nil, err
	}

	return blocks, signs, nil
}
