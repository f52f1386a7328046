package discord

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/PhelGc/roadsphere/internal/evaluator"
)

// sender es la parte de discordgo.Session que usa el notificador
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Client struct {
	session *discordgo.Session
	send    sender
	config  *Config
}

type Config struct {
	BotToken  string
	ChannelID string // canal donde se publican los análisis de riesgo alto
	SiteURL   string // URL pública del sitio, opcional
}

func NewClient(config *Config) (*Client, error) {
	session, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creando sesión Discord: %v", err)
	}

	return &Client{
		session: session,
		send:    session,
		config:  config,
	}, nil
}

// NotifyHighRisk publica el análisis en el canal configurado
func (c *Client) NotifyHighRisk(ctx context.Context, s evaluator.Scenario, r evaluator.AnalysisResult) error {
	embed := c.buildRiskEmbed(s, r)

	_, err := c.send.ChannelMessageSendEmbed(c.config.ChannelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error enviando mensaje a Discord: %v", err)
	}
	return nil
}

// buildRiskEmbed construye el embed con el resumen del análisis
func (c *Client) buildRiskEmbed(s evaluator.Scenario, r evaluator.AnalysisResult) *discordgo.MessageEmbed {
	// Color según riesgo
	color := 0xF39C12 // Naranja
	if r.RiskScore >= 90 {
		color = 0xE74C3C // Rojo
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("Riesgo %d/100 - %s", r.RiskScore, r.Problem), maxTitle),
		URL:         c.config.SiteURL,
		Description: truncate(s.Description, maxDescription),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Vía",
				Value:  truncate(orDash(s.RoadType), maxFieldValue),
				Inline: true,
			},
			{
				Name:   "Problema",
				Value:  truncate(orDash(s.IssueType), maxFieldValue),
				Inline: true,
			},
			{
				Name:   "Entorno",
				Value:  truncate(orDash(s.Environment), maxFieldValue),
				Inline: true,
			},
			{
				Name:   "Velocidad",
				Value:  fmt.Sprintf("%d km/h", s.SpeedKmh),
				Inline: true,
			},
			{
				Name:   "Tráfico",
				Value:  fmt.Sprintf("%d/10", s.TrafficDensity),
				Inline: true,
			},
			{
				Name:  "Causas",
				Value: bullets(r.Causes),
			},
			{
				Name:  "Intervenciones",
				Value: bullets(r.Interventions),
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "RoadSphere - Notificación automatizada",
		},
	}

	return embed
}

// Los valores vacíos no se aceptan en campos de embed
func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return truncate("• "+strings.Join(items, "\n• "), maxFieldValue)
}

// Límites de Discord para embeds, en caracteres
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldValue  = 1024
)

// truncate recorta a n caracteres contando runas y marca el corte con "..."
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// Close cierra la conexión con Discord
func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
	}
}
