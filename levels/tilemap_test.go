package levels

import (
	"errors"
	"testing"
)

func TestNewTilemapRejectsLengthMismatch(t *testing.T) {
	if _, err := NewTilemap(3, 2, 16, make([]int, 5), nil); !errors.Is(err, ErrInvalidTilemap) {
		t.Fatalf("expected ErrInvalidTilemap, got %v", err)
	}
	if _, err := NewTilemap(0, 2, 16, nil, nil); !errors.Is(err, ErrInvalidTilemap) {
		t.Fatalf("expected ErrInvalidTilemap for zero width, got %v", err)
	}
}

func TestTilemapAccessors(t *testing.T) {
	tiles := []int{
		TileSolid, TilePlatform, TileLadder,
		TileEmpty, TileSlopeUp, TileSpike,
	}
	tm, err := NewTilemap(3, 2, 16, tiles, nil)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name        string
		tx, ty      int
		solid, plat bool
		climb       bool
		wantTile    int
	}{
		{"solid_bottom_left", 0, 0, true, false, false, TileSolid},
		{"platform", 1, 0, false, true, false, TilePlatform},
		{"ladder", 2, 0, false, false, true, TileLadder},
		{"slope", 1, 1, false, false, false, TileSlopeUp},
		{"out_of_bounds_is_empty", -1, 0, false, false, false, TileEmpty},
		{"above_top_is_empty", 0, 5, false, false, false, TileEmpty},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := tm.GetTile(c.tx, c.ty); got != c.wantTile {
				t.Fatalf("GetTile = %d, want %d", got, c.wantTile)
			}
			if tm.IsSolid(c.tx, c.ty) != c.solid || tm.IsPlatform(c.tx, c.ty) != c.plat || tm.IsClimbable(c.tx, c.ty) != c.climb {
				t.Fatalf("unexpected flags at %d,%d", c.tx, c.ty)
			}
		})
	}

	if !tm.SetTile(0, 1, TileSolid) || !tm.IsSolid(0, 1) {
		t.Fatalf("SetTile did not take effect")
	}
	if tm.SetTile(9, 9, TileSolid) {
		t.Fatalf("SetTile out of bounds should report false")
	}
	if tm.TileFriction(0, 0) != 1 {
		t.Fatalf("expected solid friction 1, got %v", tm.TileFriction(0, 0))
	}
}

func TestRegistryOverride(t *testing.T) {
	reg := DefaultRegistry()
	reg.Set(TileType{ID: TileSolid, Name: "ice", Solid: true, Friction: 0.1})
	tm, err := NewTilemap(1, 1, 16, []int{TileSolid}, reg)
	if err != nil {
		t.Fatal(err)
	}
	if tm.TileFriction(0, 0) != 0.1 {
		t.Fatalf("expected overridden friction, got %v", tm.TileFriction(0, 0))
	}
}

func TestDefaultLevelLoads(t *testing.T) {
	lvl, err := LoadLevelFromFS("default.json")
	if err != nil {
		t.Fatal(err)
	}
	tm, err := lvl.Tilemap(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tm.HasGoal || tm.GetTile(tm.GoalX, tm.GoalY) != TileGoal {
		t.Fatalf("expected goal tile at %d,%d", tm.GoalX, tm.GoalY)
	}
	if !tm.IsSolid(0, 0) {
		t.Fatalf("expected solid floor")
	}
	if len(lvl.Entities) == 0 {
		t.Fatalf("expected entity placements")
	}
}
