package sched

import (
	"github.com/Uriopass/Egregoria-sub002/agent"
	"github.com/Uriopass/Egregoria-sub002/internal/slotmap"
)

// World is the entity store the scheduler owns: every simulated vehicle,
// keyed by a stable generational id. Pedestrians are not stored here.
type World struct {
	Vehicles *slotmap.Store[agent.Vehicle]
}

func NewWorld() *World {
	return &World{Vehicles: slotmap.NewStore[agent.Vehicle]()}
}

func (w *World) SpawnVehicle(v agent.Vehicle) agent.ID {
	return w.Vehicles.Insert(v)
}

func (w *World) RemoveVehicle(id agent.ID) bool {
	return w.Vehicles.Remove(id)
}
