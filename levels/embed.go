package levels

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

//go:embed *.json
var LevelsFS embed.FS

// Level is the on-disk level format: a flat row-major tile array (row 0 at the
// bottom), spawn and goal coordinates and an entity placement list.
type Level struct {
	Width    int        `json:"width" yaml:"width"`
	Height   int        `json:"height" yaml:"height"`
	TileSize float64    `json:"tile_size" yaml:"tile_size"`
	Tiles    []int      `json:"tiles" yaml:"tiles"`
	Spawn    [2]float64 `json:"spawn" yaml:"spawn"`
	Goal     *[2]int    `json:"goal,omitempty" yaml:"goal,omitempty"`
	Entities []Entity   `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// Entity places a prefab in world coordinates.
type Entity struct {
	Prefab string         `json:"prefab" yaml:"prefab"`
	X      float64        `json:"x" yaml:"x"`
	Y      float64        `json:"y" yaml:"y"`
	Props  map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

func LoadLevelFromFS(name string) (*Level, error) {
	data, err := fs.ReadFile(LevelsFS, name)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return ParseLevel(data)
}

// LoadLevelFile reads a level from disk.
func LoadLevelFile(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return ParseLevel(data)
}

func ParseLevel(data []byte) (*Level, error) {
	var lvl Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level: %w", err)
	}
	return &lvl, nil
}

// Tilemap validates the level grid and builds a tilemap from it.
func (l *Level) Tilemap(reg *Registry) (*Tilemap, error) {
	tm, err := NewTilemap(l.Width, l.Height, l.TileSize, l.Tiles, reg)
	if err != nil {
		return nil, err
	}
	tm.SpawnX, tm.SpawnY = l.Spawn[0], l.Spawn[1]
	if l.Goal != nil {
		tm.GoalX, tm.GoalY, tm.HasGoal = l.Goal[0], l.Goal[1], true
	}
	return tm, nil
}

// FromTilemap captures a tilemap back into the level format.
func FromTilemap(tm *Tilemap) *Level {
	lvl := &Level{
		Width:    tm.Width(),
		Height:   tm.Height(),
		TileSize: tm.TileSize(),
		Tiles:    tm.Tiles(),
		Spawn:    [2]float64{tm.SpawnX, tm.SpawnY},
	}
	if tm.HasGoal {
		lvl.Goal = &[2]int{tm.GoalX, tm.GoalY}
	}
	return lvl
}
