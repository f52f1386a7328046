// Package scene dibuja la ilustración SVG de una escena vial y anima sus actores.
package scene

import (
	"fmt"
	"strings"
)

// Dimensiones lógicas del lienzo
const (
	CanvasWidth  = 800
	CanvasHeight = 400

	// VehicleStartX es la x fuera de pantalla donde reaparece un vehículo
	VehicleStartX = -50
	// Límites verticales de rebote de los peatones
	PedestrianMinY = 200
	PedestrianMaxY = 400
)

// SceneType tipo de escena
type SceneType string

const (
	Straight      SceneType = "straight"
	Curve         SceneType = "curve"
	TIntersection SceneType = "t-intersection"
	SchoolZone    SceneType = "school-zone"
)

// SceneTypes lista los tipos válidos en el orden del selector
var SceneTypes = []SceneType{Straight, Curve, TIntersection, SchoolZone}

// ParseSceneType valida un tipo de escena; vacío equivale a straight
func ParseSceneType(s string) (SceneType, error) {
	t := SceneType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return Straight, nil
	}
	for _, known := range SceneTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("tipo de escena desconocido: %q", s)
}

// Feature es una de las cinco intervenciones dibujables
type Feature string

const (
	FeatureRumbleStrips  Feature = "rumbleStrips"
	FeatureGuardrail     Feature = "guardrail"
	FeatureSignage       Feature = "signage"
	FeatureZebraCrossing Feature = "zebraCrossing"
	FeatureLighting      Feature = "lighting"
)

// Features en orden de dibujo
var Features = []Feature{FeatureRumbleStrips, FeatureGuardrail, FeatureSignage, FeatureZebraCrossing, FeatureLighting}

// Config es el estado actual de los controles de la escena
type Config struct {
	Type          SceneType `json:"sceneType"`
	RumbleStrips  bool      `json:"rumbleStrips"`
	Guardrail     bool      `json:"guardrail"`
	Signage       bool      `json:"signage"`
	ZebraCrossing bool      `json:"zebraCrossing"`
	Lighting      bool      `json:"lighting"`
}

// DefaultConfig escena recta sin intervenciones
func DefaultConfig() Config {
	return Config{Type: Straight}
}

// Enabled indica si el toggle f está activo
func (c Config) Enabled(f Feature) bool {
	switch f {
	case FeatureRumbleStrips:
		return c.RumbleStrips
	case FeatureGuardrail:
		return c.Guardrail
	case FeatureSignage:
		return c.Signage
	case FeatureZebraCrossing:
		return c.ZebraCrossing
	case FeatureLighting:
		return c.Lighting
	}
	return false
}

// With devuelve una copia con el toggle f fijado a on
func (c Config) With(f Feature, on bool) Config {
	switch f {
	case FeatureRumbleStrips:
		c.RumbleStrips = on
	case FeatureGuardrail:
		c.Guardrail = on
	case FeatureSignage:
		c.Signage = on
	case FeatureZebraCrossing:
		c.ZebraCrossing = on
	case FeatureLighting:
		c.Lighting = on
	}
	return c
}

// Weather efecto climático superpuesto
type Weather string

const (
	WeatherNone Weather = "none"
	WeatherRain Weather = "rain"
	WeatherFog  Weather = "fog"
	WeatherSnow Weather = "snow"
)

// ParseWeather valida un efecto; vacío equivale a none
func ParseWeather(s string) (Weather, error) {
	switch w := Weather(strings.ToLower(strings.TrimSpace(s))); w {
	case "", WeatherNone:
		return WeatherNone, nil
	case WeatherRain, WeatherFog, WeatherSnow:
		return w, nil
	}
	return "", fmt.Errorf("efecto climático desconocido: %q", s)
}

// VehicleKind tipo de vehículo
type VehicleKind string

const (
	Car   VehicleKind = "car"
	Truck VehicleKind = "truck"
)

// Vehicle avanza en x y reaparece por la izquierda
type Vehicle struct {
	ID    string      `json:"id"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Speed float64     `json:"speed"`
	Kind  VehicleKind `json:"kind"`
}

// Pedestrian se mueve en diagonal y rebota en los límites
type Pedestrian struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	SpeedX float64 `json:"speedX"`
	SpeedY float64 `json:"speedY"`
}

// Actors lista de actores de la simulación. Nunca se eliminan.
type Actors struct {
	Vehicles    []Vehicle    `json:"vehicles"`
	Pedestrians []Pedestrian `json:"pedestrians"`
}

// Clone copia profunda de las listas
func (a Actors) Clone() Actors {
	return Actors{
		Vehicles:    append([]Vehicle(nil), a.Vehicles...),
		Pedestrians: append([]Pedestrian(nil), a.Pedestrians...),
	}
}
