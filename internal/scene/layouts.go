package scene

// layout geometría fija de un tipo de escena. Cada toggle tiene sus propias
// figuras; un toggle sin entrada no dibuja nada en esa escena.
type layout struct {
	base     []Shape
	overlays map[Feature][]Shape
}

const (
	roadGray   = "#555"
	markWhite  = "#fff"
	stripColor = "#ff0"
	railGray   = "#ccc"
	signRed    = "#f00"
	poleGray   = "#888"
)

var layouts = map[SceneType]layout{
	Straight:      straightLayout(),
	Curve:         curveLayout(),
	TIntersection: tIntersectionLayout(),
	SchoolZone:    schoolZoneLayout(),
}

// streetlight un foco con su poste
func streetlight(cx, cy float64) []Shape {
	return []Shape{
		circle(cx, cy, 15, stripColor),
		rect(cx-5, cy, 10, 50, poleGray),
	}
}

func sign(x, y, w float64, label string, size int) []Shape {
	return []Shape{
		rect(x, y, w, 40, signRed, Attr{"rx", "5"}),
		text(x+w/2, y+25, size, label),
	}
}

func straightLayout() layout {
	base := []Shape{rect(100, 150, 600, 100, roadGray)}
	for i := 0; i < 5; i++ {
		base = append(base, rect(150+float64(i)*150, 195, 50, 10, markWhite))
	}

	var rumble []Shape
	for i := 0; i < 3; i++ {
		x := 120 + float64(i)*200
		rumble = append(rumble, rect(x, 155, 20, 5, stripColor), rect(x, 240, 20, 5, stripColor))
	}

	var rails []Shape
	for _, x := range []float64{95, 700} {
		for i := 0; i < 8; i++ {
			rails = append(rails, rect(x, 160+float64(i)*25, 5, 15, railGray))
		}
	}

	var zebra []Shape
	for i := 0; i < 5; i++ {
		zebra = append(zebra, rect(380, 150+float64(i)*20, 40, 10, markWhite))
	}

	return layout{
		base: base,
		overlays: map[Feature][]Shape{
			FeatureRumbleStrips:  rumble,
			FeatureGuardrail:     rails,
			FeatureSignage:       sign(650, 100, 40, "!", 20),
			FeatureZebraCrossing: zebra,
			FeatureLighting:      streetlight(200, 100),
		},
	}
}

func curveLayout() layout {
	const curve = "M 100 300 Q 400 100 700 300"
	return layout{
		base: []Shape{
			path(curve, roadGray, 100),
			path(curve, markWhite, 5, Attr{"stroke-dasharray", "20,20"}),
		},
		overlays: map[Feature][]Shape{
			FeatureGuardrail: {
				path("M 50 300 Q 350 50 650 300", railGray, 10),
				path("M 150 300 Q 450 150 750 300", railGray, 10),
			},
			FeatureSignage:  sign(600, 150, 40, "!", 20),
			FeatureLighting: streetlight(300, 150),
		},
	}
}

func tIntersectionLayout() layout {
	base := []Shape{
		rect(100, 180, 600, 40, roadGray),
		rect(380, 100, 40, 200, roadGray),
	}
	for i := 0; i < 3; i++ {
		base = append(base, rect(150+float64(i)*200, 195, 50, 10, markWhite))
	}
	for i := 0; i < 2; i++ {
		base = append(base, rect(395, 120+float64(i)*80, 10, 40, markWhite))
	}

	return layout{
		base: base,
		overlays: map[Feature][]Shape{
			FeatureGuardrail: {
				rect(100, 170, 600, 5, railGray),
				rect(100, 225, 600, 5, railGray),
				rect(370, 100, 5, 200, railGray),
				rect(425, 100, 5, 200, railGray),
			},
			FeatureSignage:  sign(350, 80, 40, "STOP", 16),
			FeatureLighting: streetlight(250, 150),
		},
	}
}

func schoolZoneLayout() layout {
	base := []Shape{rect(100, 180, 600, 40, roadGray)}
	for i := 0; i < 5; i++ {
		base = append(base, rect(130+float64(i)*120, 195, 40, 10, markWhite))
	}
	// El paso de cebra es parte fija de la zona escolar
	for i := 0; i < 5; i++ {
		base = append(base, rect(380, 180+float64(i)*8, 40, 4, markWhite))
	}
	base = append(base,
		rect(500, 100, 150, 70, "#8B4513"),
		polygon("500,100 575,70 650,100", "#A52A2A"),
	)

	return layout{
		base: base,
		overlays: map[Feature][]Shape{
			FeatureSignage:  sign(350, 120, 60, "SCHOOL", 16),
			FeatureLighting: streetlight(200, 150),
		},
	}
}
