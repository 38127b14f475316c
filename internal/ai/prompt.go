package ai

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// SystemPrompt fixes the voice of every interpretation.
const SystemPrompt = "Eres un economista que analiza resultados de elasticidad precio de la demanda para el mercado P2P " +
	"de USDT/BOB en Bolivia. Debes escribir interpretaciones breves, claras y rigurosas en español, en uno o dos " +
	"párrafos, usando solo texto plano (sin código, sin listas, sin markdown). No expliques cómo se implementa el " +
	"cálculo ni describas pasos internos. No inventes datos adicionales: usa únicamente la información numérica y " +
	"contextual que se te proporciona."

const bolivianContext = `Contexto económico de Bolivia:
- Restricciones de acceso al dólar (BCB Resolución 144/2020)
- Tipo de cambio oficial fijo: 6.96 BOB/USD desde 2011
- Inflación mensual típica: 0.5-1.5% (INE)
- Economía informal: ~60% de transacciones
- USDT como refugio de valor ante restricciones cambiarias`

var windowNames = map[string]string{
	models.WindowHourly: "por hora",
	models.WindowDaily:  "por día",
	models.WindowWeekly: "por semana",
}

// BuildPrompt writes the user prompt for a completed calculation.
func BuildPrompt(c *models.Calculation) string {
	r := c.Result
	var b strings.Builder
	b.WriteString(bolivianContext)
	b.WriteString("\n\nResultado del análisis:\n")
	fmt.Fprintf(&b, "- Coeficiente de elasticidad: %.4f\n", r.Coefficient)
	fmt.Fprintf(&b, "- Clasificación: %s\n", strings.ToUpper(r.Classification))
	fmt.Fprintf(&b, "- Método: %s\n", c.Method)
	fmt.Fprintf(&b, "- Periodo analizado: desde %s hasta %s\n", c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly))
	fmt.Fprintf(&b, "- Ventana de agregación: %s\n", windowNames[c.Window])
	fmt.Fprintf(&b, "- Puntos de datos usados: %d\n", r.DataPointsUsed)
	if q := c.Metadata.AverageDataQuality; q != nil {
		fmt.Fprintf(&b, "- Calidad de datos: %.0f%%\n", *q*100)
	}
	if r.RSquared != nil {
		fmt.Fprintf(&b, "- R²: %.3f, significativo: %t\n", *r.RSquared, r.IsSignificant)
	}
	if !r.IsReliable {
		b.WriteString("- Nota: el cálculo fue marcado como de baja confiabilidad por poca variación en el precio o en la cantidad. Menciona esta cautela en tu interpretación.\n")
	}
	b.WriteString("\nTarea: interpreta este resultado en el contexto del mercado boliviano de USDT. Explica en 1-3 párrafos ")
	b.WriteString("qué significa este valor para la sensibilidad de la demanda frente al precio y qué implicaciones prácticas ")
	b.WriteString("tiene para quienes usan USDT en Bolivia. Usa solo texto plano.")
	return b.String()
}

const (
	maxInterpretationLen = 800
	minInterpretationLen = 20
	fallbackText         = "No se pudo generar una interpretación válida con los datos actuales. Revise manualmente los resultados numéricos."
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	headerRe    = regexp.MustCompile(`(?m)^#+\s*`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+\.)\s+`)
)

// Sanitize strips markdown from model output and caps its length. Output
// that is empty or too short afterwards is replaced by a fallback sentence.
func Sanitize(text string) string {
	text = codeBlockRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "`", "")
	text = strings.TrimSpace(text)

	if len([]rune(text)) < minInterpretationLen {
		return fallbackText
	}
	if runes := []rune(text); len(runes) > maxInterpretationLen {
		text = string(runes[:maxInterpretationLen-3]) + "..."
	}
	return text
}
