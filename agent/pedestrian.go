package agent

import "github.com/Uriopass/Egregoria-sub002/geom"

// PedestrianDecision computes a constant-speed decision that turns smoothly
// toward the next itinerary point: no collision cone, no traffic control.
func PedestrianDecision(v *Vehicle, objective geom.Vec3, hasObjective bool) Decision {
	if !hasObjective {
		return Decision{Speed: 0, Dir: v.Transform.Dir}
	}
	dir := objective.Sub(v.Transform.Pos).XY().Normalize(v.Transform.Dir)
	return Decision{Speed: v.Kind.CruisingSpeed, Dir: dir}
}
