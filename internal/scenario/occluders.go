package scenario

import (
	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/placement"
)

// MoveSchedule draws up to MaxMoves strictly increasing tick indices in
// [0, SceneTicks], two consecutive moves being at least OccluderMinGap apart.
func (b *Builder) MoveSchedule() []int {
	n := b.randInt(0, b.cfg.MaxMoves)
	last := b.cfg.SceneTicks
	gap := b.cfg.OccluderMinGap
	moves := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if len(moves) == 0 {
			moves = append(moves, b.randInt(0, last))
			continue
		}
		next := moves[len(moves)-1] + gap
		if next >= last {
			break
		}
		moves = append(moves, b.randInt(next, last))
	}
	return moves
}

// Occluder draws the parameters of an occluder placed at pos.
func (b *Builder) Occluder(pos placement.Position, floorMaterial string) actor.OccluderParams {
	return actor.OccluderParams{
		Transform: actor.Transform{
			Location: pos.Location,
			Rotation: pos.Rotation,
			Scale:    pos.Scale,
		},
		Physics:  actor.DefaultPhysics(),
		Material: b.WallMaterial(floorMaterial),
		Moves:    b.MoveSchedule(),
		Speed:    b.cfg.OccluderSpeed.Sample(b.rng),
		StartUp:  b.rng.Intn(2) == 0,
	}
}

// Occluders places up to n occluders. Occluders that cannot be placed are
// omitted.
func (b *Builder) Occluders(n int, floorMaterial string, zones *[]placement.Zone) []actor.OccluderParams {
	var out []actor.OccluderParams
	for i := 0; i < n; i++ {
		pos, ok := b.gen.FindPosition(placement.KindOccluder, zones)
		if !ok {
			continue
		}
		out = append(out, b.Occluder(pos, floorMaterial))
	}
	return out
}
