// Package citydata holds the tunable constants and config tables the rest
// of the simulation looks up by name: time-of-day demand multipliers,
// default vehicle/pedestrian kind parameters, and the goods recipe table.
package citydata

import "github.com/Uriopass/Egregoria-sub002/agent"

// TimePeriodMultiplier maps a period id (1..6) to a demand multiplier
// applied to goods production and vehicle spawn rates: 1 = very early
// off-peak, 2 = morning peak, 3 = late morning, 4 = mid-day, 5 = evening
// peak, 6 = late evening.
var TimePeriodMultiplier = map[int]float64{
	1: 0.3,
	2: 1.6,
	3: 0.9,
	4: 0.8,
	5: 1.4,
	6: 0.5,
}

// VehicleKinds maps a named vehicle class to its default physical
// parameters.
var VehicleKinds = map[string]agent.Kind{
	"car":    agent.DefaultCarKind(),
	"truck":  {Width: 2.6, Accel: 2.0, Decel: 7.0, CruisingSpeed: 11.1, MinTurnRadius: 9.0, AngAccel: 2.0},
	"train":  {Width: 3.0, Accel: 1.0, Decel: 2.5, CruisingSpeed: 22.0, MinTurnRadius: 40.0, AngAccel: 0.5},
	"bus":    {Width: 2.5, Accel: 1.8, Decel: 6.0, CruisingSpeed: 12.0, MinTurnRadius: 8.0, AngAccel: 2.0},
}

// PedestrianKinds maps a named pedestrian class to its default parameters.
var PedestrianKinds = map[string]agent.Kind{
	"pedestrian": agent.DefaultPedestrianKind(),
}

// Recipe mirrors freight.Recipe's shape so the table can be built without
// importing freight (avoids a dependency cycle; freight.Recipe is built
// from these fields at registration time by the caller).
type Recipe struct {
	Consumption   map[string]float64
	Production    map[string]float64
	Complexity    float64
	CapMultiplier float64
}

// GoodsRecipes is the default company production-rule table.
var GoodsRecipes = map[string]Recipe{
	"flour-mill": {
		Consumption:   map[string]float64{"wheat": 100},
		Production:    map[string]float64{"flour": 80},
		Complexity:    1.0,
		CapMultiplier: 2.0,
	},
	"bakery": {
		Consumption:   map[string]float64{"flour": 60},
		Production:    map[string]float64{"bread": 50},
		Complexity:    1.5,
		CapMultiplier: 1.5,
	},
	"sawmill": {
		Consumption:   map[string]float64{"wood": 100},
		Production:    map[string]float64{"planks": 70},
		Complexity:    1.2,
		CapMultiplier: 2.0,
	},
}
