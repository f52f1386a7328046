package scene

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Step avanza todos los actores un tick
func (a *Actors) Step() {
	for i := range a.Vehicles {
		v := &a.Vehicles[i]
		v.X += v.Speed
		if v.X > CanvasWidth {
			v.X = VehicleStartX
		}
	}

	for i := range a.Pedestrians {
		p := &a.Pedestrians[i]
		p.X += p.SpeedX
		p.Y += p.SpeedY

		// Rebote elástico en los límites
		if p.X < 0 || p.X > CanvasWidth {
			p.SpeedX = -p.SpeedX
		}
		if p.Y < PedestrianMinY || p.Y > PedestrianMaxY {
			p.SpeedY = -p.SpeedY
		}
	}
}

// NewVehicle crea un vehículo fuera de pantalla con velocidad 2–5
func NewVehicle(rng *rand.Rand) Vehicle {
	kind := Car
	if rng.Float64() <= 0.5 {
		kind = Truck
	}
	return Vehicle{
		ID:    uuid.NewString(),
		X:     VehicleStartX,
		Y:     170,
		Speed: 2 + rng.Float64()*3,
		Kind:  kind,
	}
}

// NewPedestrian crea un peatón en la acera inferior con velocidad ±1
func NewPedestrian(rng *rand.Rand) Pedestrian {
	return Pedestrian{
		ID:     uuid.NewString(),
		X:      200 + rng.Float64()*400,
		Y:      250 + rng.Float64()*100,
		SpeedX: (rng.Float64() - 0.5) * 2,
		SpeedY: (rng.Float64() - 0.5) * 2,
	}
}
