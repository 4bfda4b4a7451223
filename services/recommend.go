package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sensiboost/logging"
	"sensiboost/models"
)

const (
	DefaultQuery = "mejores sensibilidades"

	basicHitLimit   = 6
	premiumHitLimit = 8
)

// Recommender composes search, extraction, heuristics and generation.
// Outbound failures degrade to the next fallback and never surface as errors.
type Recommender struct {
	catalog   *Catalog
	search    Searcher
	generator Generator
	metrics   *Metrics
	log       *zap.Logger
}

func NewRecommender(catalog *Catalog, search Searcher, generator Generator, metrics *Metrics, log *zap.Logger) *Recommender {
	if search == nil {
		search = DisabledSearch{}
	}
	if generator == nil {
		generator = DisabledGenerator{}
	}
	return &Recommender{
		catalog:   catalog,
		search:    search,
		generator: generator,
		metrics:   metrics,
		log:       logging.OrNop(log),
	}
}

func searchQuery(query, device string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}
	return strings.TrimSpace(query + " " + strings.TrimSpace(device))
}

// suggest runs extraction over hits and falls back to the device's tier.
func (r *Recommender) suggest(hits []models.Snippet, device string) (string, models.Profile) {
	if p := ExtractSuggestion(hits); p != nil {
		return models.SourceSearch, *p
	}
	return models.SourceHeuristic, HeuristicProfile(r.catalog.TierFor(device))
}

// Basic returns a search-derived profile, or a heuristic one for the
// device's tier when the snippets carry no usable numbers.
func (r *Recommender) Basic(ctx context.Context, query, device string) models.BasicResult {
	hits := r.search.Search(ctx, searchQuery(query, device), basicHitLimit)
	source, profile := r.suggest(hits, device)
	if source == models.SourceHeuristic {
		hits = []models.Snippet{}
	}
	r.metrics.Recommendation("basic", source)
	r.log.Info("recommend.basic",
		zap.String("device", device),
		zap.String("source", source),
		zap.Int("hits", len(hits)),
	)
	return models.BasicResult{Source: source, Hits: hits, Suggestion: profile}
}

// Premium asks the generation provider for a full guide. One attempt only:
// a provider error is reported with the hits already fetched.
func (r *Recommender) Premium(ctx context.Context, query, device string) models.PremiumResult {
	hits := r.search.Search(ctx, searchQuery(query, device), premiumHitLimit)

	if !r.generator.Enabled() {
		res := r.fallbackGuide(hits, device)
		r.metrics.Recommendation("premium", models.SourceFallback)
		return res
	}

	start := time.Now()
	out, err := r.generator.Generate(ctx, buildPrompt(query, device, r.catalog.TierFor(device), hits))
	r.metrics.GenerationDuration(time.Since(start))
	if err != nil {
		r.log.Warn("recommend.premium.generation_failed", zap.Error(err))
		r.metrics.GenerationFailure()
		return models.PremiumResult{OK: false, Error: err.Error(), Hits: nonNil(hits)}
	}
	r.metrics.Recommendation("premium", models.SourceAI)
	return parseGeneration(out, r.log)
}

func nonNil(hits []models.Snippet) []models.Snippet {
	if hits == nil {
		return []models.Snippet{}
	}
	return hits
}

// parseGeneration decodes the provider output as JSON when it can and
// otherwise hands back the raw text.
func parseGeneration(out string, log *zap.Logger) models.PremiumResult {
	text := stripCodeFence(out)
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		log.Info("recommend.premium.raw_output", zap.Error(err))
		return models.PremiumResult{OK: true, Source: models.SourceAI, Raw: out}
	}
	valid := true
	if err := ValidateGuide(doc); err != nil {
		log.Warn("recommend.premium.schema_mismatch", zap.Error(err))
		valid = false
	}
	return models.PremiumResult{OK: true, Source: models.SourceAI, Parsed: doc, SchemaValid: &valid}
}

var fallbackTips = []string{
	"Cambia los valores de a poco (5 puntos) y prueba cada cambio en la sala de entrenamiento.",
	"Activa el modo de alto rendimiento y cierra otras apps antes de jugar.",
}

func (r *Recommender) fallbackGuide(hits []models.Snippet, device string) models.PremiumResult {
	_, p := r.suggest(hits, device)
	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Link != "" {
			sources = append(sources, h.Link)
		}
	}
	guide := models.Guide{
		Values:  p,
		Steps:   fallbackSteps(p),
		Tips:    append([]string(nil), fallbackTips...),
		Sources: sources,
	}
	return models.PremiumResult{OK: true, Source: models.SourceFallback, Parsed: guide}
}

func fallbackSteps(p models.Profile) []string {
	return []string{
		"Abre el juego y entra en Configuración > Sensibilidad.",
		fmt.Sprintf("Pon General en %d y Punto rojo en %d.", p.General, p.RedDot),
		fmt.Sprintf("Ajusta Mira 2x a %d y Mira 4x a %d.", p.Scope2x, p.Scope4x),
		fmt.Sprintf("Ajusta Mira de francotirador a %d y Cámara 360 a %d.", p.SniperScope, p.FreeLook),
		fmt.Sprintf("Deja el botón de disparo en %d.", p.FireButton),
		fmt.Sprintf("En Opciones de desarrollador cambia el ancho mínimo (DPI) a %d y reinicia el teléfono.", p.DPI),
	}
}

func buildPrompt(query, device string, tier models.Tier, hits []models.Snippet) string {
	var b strings.Builder
	b.WriteString("Eres un experto en configuración de sensibilidad para juegos de disparos en móvil.\n")
	fmt.Fprintf(&b, "Consulta: %s\n", searchQuery(query, ""))
	if d := strings.TrimSpace(device); d != "" {
		fmt.Fprintf(&b, "Dispositivo: %s (gama %s)\n", d, tier)
	} else {
		fmt.Fprintf(&b, "Dispositivo: desconocido (gama %s)\n", tier)
	}
	if len(hits) > 0 {
		b.WriteString("Fuentes encontradas:\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s (%s)\n", plainText(h.Title), h.Link)
		}
	}
	b.WriteString("\nResponde SOLO con un objeto JSON con esta forma:\n")
	b.WriteString(`{"values":{"general":0,"red_dot":0,"scope_2x":0,"scope_4x":0,"sniper_scope":0,"free_look":0,"fire_button":0,"dpi":0},"steps":["..."],"tips":["..."],"sources":["..."]}`)
	b.WriteString("\nTodos los valores son enteros entre 0 y 200; dpi es uno de 300, 320, 360, 400 o 480.\n")
	return b.String()
}
