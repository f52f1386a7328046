package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/PhelGc/roadsphere/internal/mcp"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
)

// cliSession sesión usada por los comandos de terminal, así analyze y chat
// comparten el último análisis entre ejecuciones con un storage persistente
const cliSession = "00000000-0000-4000-8000-00000000c11a"

var (
	analyzeForm   scenario.Form
	analyzeOutput string

	renderConfig  scene.Config
	renderType    string
	renderWeather string
	renderOut     string
)

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeForm.RoadType, "road-type", "", "road type (default urban)")
	f.StringVar(&analyzeForm.IssueType, "issue-type", "", "issue type (default speeding)")
	f.StringVar(&analyzeForm.Environment, "environment", "", "environment (default day)")
	f.StringVar(&analyzeForm.Speed, "speed", "", "speed in km/h (default 50)")
	f.StringVar(&analyzeForm.TrafficDensity, "traffic", "", "traffic density 1-10 (default 5)")
	f.StringVar(&analyzeForm.Description, "description", "", "free text description")
	f.StringVarP(&analyzeOutput, "output", "o", "text", "output format: text, json or yaml")

	rf := renderCmd.Flags()
	rf.StringVar(&renderType, "scene", "straight", "scene type: straight, curve, t-intersection, school-zone")
	rf.BoolVar(&renderConfig.RumbleStrips, "rumble-strips", false, "draw rumble strips")
	rf.BoolVar(&renderConfig.Guardrail, "guardrail", false, "draw guardrail")
	rf.BoolVar(&renderConfig.Signage, "signage", false, "draw signage")
	rf.BoolVar(&renderConfig.ZebraCrossing, "zebra-crossing", false, "draw zebra crossing")
	rf.BoolVar(&renderConfig.Lighting, "lighting", false, "draw lighting")
	rf.StringVar(&renderWeather, "weather", "none", "weather: none, rain, fog, snow")
	rf.StringVarP(&renderOut, "out", "o", "", "write SVG to file instead of stdout")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a road scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sess, _ := a.sessions.Get(cliSession)
		view, err := sess.Scenario.Submit(cmd.Context(), analyzeForm)
		if err != nil {
			return err
		}
		return printView(cmd, view, analyzeOutput)
	},
}

func printView(cmd *cobra.Command, v scenario.View, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(out).Encode(v)
	case "text":
		fmt.Fprintf(out, "Problem: %s\n", v.Problem)
		if v.Notice != "" {
			fmt.Fprintf(out, "(%s)\n", v.Notice)
		}
		fmt.Fprintf(out, "Risk score: %d/100 %s\n", v.RiskScore, v.RiskClass)
		fmt.Fprintln(out, "Causes:")
		for _, c := range v.Causes {
			fmt.Fprintf(out, "  - %s\n", c)
		}
		fmt.Fprintln(out, "Interventions:")
		for _, i := range v.Interventions {
			fmt.Fprintf(out, "  - %s\n", i)
		}
		return nil
	}
	return fmt.Errorf("formato de salida desconocido: %q", format)
}

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask the safety copilot, using the last analysis as context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sess, _ := a.sessions.Get(cliSession)
		if _, ok := sess.Copilot.Send(cmd.Context(), strings.Join(args, " ")); !ok {
			return fmt.Errorf("la pregunta está vacía")
		}
		return printMarkdown(cmd, sess.Copilot.Markdown())
	},
}

// printMarkdown muestra la respuesta con glamour; si falla imprime el texto crudo
func printMarkdown(cmd *cobra.Command, text string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		if rendered, rerr := renderer.Render(text); rerr == nil {
			text = rendered
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the road scene as SVG",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := scene.ParseSceneType(renderType)
		if err != nil {
			return err
		}
		weather, err := scene.ParseWeather(renderWeather)
		if err != nil {
			return err
		}
		cfg := renderConfig
		cfg.Type = t

		svg := scene.Render(cfg, scene.Actors{}, weather, 0).SVG()
		if renderOut == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), svg)
			return err
		}
		return os.WriteFile(renderOut, []byte(svg), 0644)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve RoadSphere tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return mcp.New(a.sessions, version, a.logger).ServeStdio()
	},
}
