package citymap

import "github.com/Uriopass/Egregoria-sub002/geom"

// IntersectionData is the value stored per intersection.
type IntersectionData struct {
	Pos    geom.Vec3
	Radius float64

	// Roads is sorted by pseudo-angle of the direction leaving this
	// intersection.
	Roads []RoadID

	// Turns is the sorted set of turn ids rooted at this intersection.
	Turns []TurnID

	LightPolicy LightPolicy
	TurnPolicy  TurnPolicy
}

// RoadData is the value stored per road.
type RoadData struct {
	Src, Dst IntersectionID

	// Points is the centerline, endpoint to endpoint, before interface
	// trimming.
	Points geom.Polyline3
	Width  float64

	SrcInterface, DstInterface float64

	LanesForward  []LaneID
	LanesBackward []LaneID

	Segment        SegmentKind
	FromDerivative geom.Vec3 // used when Segment == SegmentCurved
	ToDerivative   geom.Vec3

	Lots []LotID
}

// InterfacedPoints returns Points trimmed by SrcInterface/DstInterface from
// both ends, the geometry lanes are actually derived from.
func (r RoadData) InterfacedPoints() geom.Polyline3 {
	length := r.Points.Length()
	srcI, dstI := clampInterfaces(r.SrcInterface, r.DstInterface, length)
	return r.Points.Slice(srcI, length-dstI)
}

// clampInterfaces applies the symmetric clamping rule: if the two
// interfaces overlap within length-2, both are scaled down
// proportionally.
func clampInterfaces(src, dst, length float64) (float64, float64) {
	maxTotal := length - 2
	if maxTotal < 0 {
		maxTotal = 0
	}
	if src+dst <= maxTotal {
		return src, dst
	}
	if src+dst < 1e-9 {
		return 0, 0
	}
	scale := maxTotal / (src + dst)
	return src * scale, dst * scale
}

// LaneData is the value stored per lane.
type LaneData struct {
	Parent          RoadID
	Src, Dst        IntersectionID
	Kind            LaneKind
	Control         TrafficControl
	SpeedLimit      float64
	Points          geom.Polyline3
	DistFromBottom  float64

	// SignalGroup selects which alternating phase a ControlSignal lane
	// belongs to (see regenerateControl/LightStateAt); meaningless for any
	// other Control value.
	SignalGroup int
}

// TurnData is the value stored per turn (keyed by the composite TurnID).
type TurnData struct {
	Kind   TurnKind
	Points geom.Polyline3
}

// LotID is an opaque reference to a building lot attached to a road side;
// the lot/zone/building system itself is out of scope, but the
// reattachment contract on Road.Lots is honoured by split_road and lots
// participate in Project.
type LotID uint64

// LotData records where a lot sits and which road it currently fronts.
type LotData struct {
	Pos    geom.Vec3
	Parent RoadID
}
