package scene

import (
	"math/rand/v2"
)

// weatherSeed fija la secuencia de partículas; el frame la hace variar
const weatherSeed = 0x5eed

// Render dibuja la escena: cielo, suelo, fondo del tipo de escena, los
// overlays activos, los actores y el clima encima de todo.
// Es una función pura de sus argumentos.
func Render(cfg Config, actors Actors, weather Weather, frame uint64) Drawing {
	l, ok := layouts[cfg.Type]
	if !ok {
		l = layouts[Straight]
	}

	d := Drawing{Width: CanvasWidth, Height: CanvasHeight}
	d.Layers = append(d.Layers, Layer{Name: "background", Shapes: append([]Shape{
		rect(0, 0, CanvasWidth, 200, "#87CEEB"),
		rect(0, 200, CanvasWidth, 200, "#228B22"),
	}, l.base...)})

	for _, f := range Features {
		if cfg.Enabled(f) && len(l.overlays[f]) > 0 {
			d.Layers = append(d.Layers, Layer{Name: string(f), Shapes: append([]Shape(nil), l.overlays[f]...)})
		}
	}

	var vehicles []Shape
	for _, v := range actors.Vehicles {
		vehicles = append(vehicles, vehicleShapes(v)...)
	}
	d.Layers = append(d.Layers, Layer{Name: "vehicles", Shapes: vehicles})

	var pedestrians []Shape
	for _, p := range actors.Pedestrians {
		pedestrians = append(pedestrians, pedestrianShapes(p)...)
	}
	d.Layers = append(d.Layers, Layer{Name: "pedestrians", Shapes: pedestrians})

	if shapes := weatherShapes(weather, frame); len(shapes) > 0 {
		d.Layers = append(d.Layers, Layer{Name: "weather", Shapes: shapes})
	}
	return d
}

func vehicleShapes(v Vehicle) []Shape {
	if v.Kind == Truck {
		return []Shape{
			rect(v.X, v.Y-10, 60, 30, "#e74c3c", Attr{"rx", "5"}),
			rect(v.X+40, v.Y-15, 25, 20, "#c0392b", Attr{"rx", "3"}),
			circle(v.X+15, v.Y+25, 6, "#333"),
			circle(v.X+45, v.Y+25, 6, "#333"),
		}
	}
	return []Shape{
		rect(v.X, v.Y, 40, 20, "#3498db", Attr{"rx", "5"}),
		rect(v.X+5, v.Y+3, 30, 14, "#aed6f1"),
		circle(v.X+10, v.Y+25, 5, "#333"),
		circle(v.X+30, v.Y+25, 5, "#333"),
	}
}

func pedestrianShapes(p Pedestrian) []Shape {
	return []Shape{
		ellipse(p.X, p.Y, 8, 15, "#9b59b6"),
		circle(p.X, p.Y-20, 10, "#f1c40f"),
	}
}

func weatherShapes(w Weather, frame uint64) []Shape {
	rng := rand.New(rand.NewPCG(weatherSeed, frame))
	var shapes []Shape

	switch w {
	case WeatherRain:
		for i := 0; i < 50; i++ {
			x := rng.Float64() * CanvasWidth
			y := rng.Float64() * 200
			shapes = append(shapes, line(x, y, x-5, y+15, "#3498db", 2))
		}
	case WeatherFog:
		for i := 0; i < 10; i++ {
			shapes = append(shapes, ellipse(
				rng.Float64()*CanvasWidth,
				50+rng.Float64()*100,
				50+rng.Float64()*100,
				10+rng.Float64()*20,
				"rgba(255, 255, 255, 0.3)",
			))
		}
	case WeatherSnow:
		for i := 0; i < 100; i++ {
			shapes = append(shapes, circle(rng.Float64()*CanvasWidth, rng.Float64()*200, 2, "#fff"))
		}
	}
	return shapes
}
