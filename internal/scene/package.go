package scene

import (
	"errors"
	"strings"
)

// ErrNoAnalysis no hay análisis previo del que tomar intervenciones
var ErrNoAnalysis = errors.New("no previous analysis")

// interventionRules mapea palabras clave de una intervención a su toggle.
// La comparación es por subcadena sin distinguir mayúsculas, así que una
// intervención puede activar varios toggles.
var interventionRules = []struct {
	feature  Feature
	keywords []string
}{
	{FeatureRumbleStrips, []string{"rumble"}},
	{FeatureGuardrail, []string{"guardrail"}},
	{FeatureSignage, []string{"signage", "sign"}},
	{FeatureZebraCrossing, []string{"zebra", "crossing"}},
	{FeatureLighting, []string{"lighting", "light"}},
}

// ApplyInterventions apaga los cinco toggles de cfg y enciende los que
// coincidan con alguna intervención. El tipo de escena se conserva.
func ApplyInterventions(cfg Config, interventions []string) Config {
	for _, f := range Features {
		cfg = cfg.With(f, false)
	}
	for _, intervention := range interventions {
		text := strings.ToLower(intervention)
		for _, rule := range interventionRules {
			if containsAny(text, rule.keywords) {
				cfg = cfg.With(rule.feature, true)
			}
		}
	}
	return cfg
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
