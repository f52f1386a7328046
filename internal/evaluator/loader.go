package evaluator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const defaultScenarioPrompt = `As a road safety expert, analyze this scenario:

Road Type: {{.RoadType}}
Issue Type: {{.IssueType}}
Environment: {{.Environment}}
Speed: {{.SpeedKmh}} km/h
Traffic Density: {{.TrafficDensity}}/10
Description: {{.Description}}

Please provide:
1. A concise problem summary (1 sentence)
2. 3-4 possible causes
3. A risk score from 0-100
4. 3-4 recommended interventions

Format your response as JSON with these keys: problem, causes (array), riskScore (number), interventions (array)
`

const defaultChatPrompt = `You are an AI road safety assistant. The user has previously analyzed a road scenario with these details:

{{.Context}}

The user now asks: "{{.Question}}"

Please provide a helpful, informative response about road safety. Reference the previous analysis context when relevant.
Keep your response concise but informative.
`

const defaultDatasetPrompt = `A user has uploaded a dataset and wants to ask questions about it. Here's a preview of their data:

{{.Preview}}

The user's question is: "{{.Question}}"

Please provide a helpful response based on the data structure shown. If you can't determine specific answers,
provide general guidance on how to analyze the data or what insights might be gained.
`

// PromptLoader almacena las plantillas de prompt.
// Se cargan una sola vez al iniciar para evitar I/O repetido en cada llamada.
type PromptLoader struct {
	Scenario *template.Template
	Chat     *template.Template
	Dataset  *template.Template
}

type chatPromptData struct {
	Context  string
	Question string
}

type datasetPromptData struct {
	Preview  string
	Question string
}

// DefaultPrompts devuelve las plantillas embebidas
func DefaultPrompts() *PromptLoader {
	return &PromptLoader{
		Scenario: template.Must(template.New("scenario").Parse(defaultScenarioPrompt)),
		Chat:     template.Must(template.New("chat").Parse(defaultChatPrompt)),
		Dataset:  template.Must(template.New("dataset").Parse(defaultDatasetPrompt)),
	}
}

// LoadPrompts parte de las plantillas embebidas y sobreescribe las que existan
// en dir (scenario.tmpl, chat.tmpl, dataset.tmpl). Un dir vacío usa solo las embebidas.
// Falla explícitamente si un archivo existe pero no es una plantilla válida.
func LoadPrompts(dir string) (*PromptLoader, error) {
	p := DefaultPrompts()
	if dir == "" {
		return p, nil
	}

	targets := map[string]**template.Template{
		"scenario.tmpl": &p.Scenario,
		"chat.tmpl":     &p.Chat,
		"dataset.tmpl":  &p.Dataset,
	}
	for name, target := range targets {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("no se pudo cargar prompt (%s): %w", path, err)
		}
		tmpl, err := template.New(strings.TrimSuffix(name, ".tmpl")).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("plantilla de prompt inválida (%s): %w", path, err)
		}
		*target = tmpl
	}
	return p, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("error renderizando prompt %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
