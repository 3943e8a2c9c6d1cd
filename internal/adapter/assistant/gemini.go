package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

var tracer = otel.Tracer("github.com/rl1809/chat-commerce/internal/adapter/assistant")

var addToCartDeclaration = functionDeclaration{
	Name:        domain.ToolAddToCart,
	Description: "Agrega un producto al carrito de compras del usuario. Úsalo SOLO cuando el usuario confirme explícitamente que desea agregar el producto.",
	Parameters: &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"productId": {Type: "STRING", Description: "El ID exacto del producto a agregar."},
			"quantity":  {Type: "NUMBER", Description: "La cantidad de unidades a agregar (por defecto 1)."},
		},
		Required: []string{"productId"},
	},
}

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	StoreName   string
	Temperature float32
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Gemini talks to the GenerateContent endpoint with addToCart declared as
// the only callable function. A client without an API key answers every
// call with domain.ErrAgentNotConfigured.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	storeName   string
	temperature float32
	http        *http.Client
	logger      *zap.Logger
}

func NewGemini(opts Options) *Gemini {
	g := &Gemini{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		storeName:   opts.StoreName,
		temperature: opts.Temperature,
		http:        opts.HTTPClient,
		logger:      opts.Logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.storeName == "" {
		g.storeName = "NumoStock"
	}
	if g.http == nil {
		g.http = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

func (g *Gemini) Converse(ctx context.Context, req domain.AgentRequest) (domain.AgentReply, error) {
	if g.apiKey == "" {
		return domain.AgentReply{}, domain.ErrAgentNotConfigured
	}

	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", g.model),
		attribute.Int("ai.history_turns", len(req.History)),
	)

	body, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		return domain.AgentReply{}, fmt.Errorf("%w: marshal request: %w", domain.ErrAgentUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.AgentReply{}, fmt.Errorf("%w: create request: %w", domain.ErrAgentUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return domain.AgentReply{}, fmt.Errorf("%w: send request: %w", domain.ErrAgentUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AgentReply{}, fmt.Errorf("%w: read response: %w", domain.ErrAgentUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := apiError(resp.StatusCode, raw)
		span.RecordError(apiErr)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		g.logger.Error("gemini request failed", zap.Int("status", resp.StatusCode), zap.Error(apiErr))
		return domain.AgentReply{}, fmt.Errorf("%w: %w", domain.ErrAgentUnavailable, apiErr)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.AgentReply{}, fmt.Errorf("%w: parse response: %w", domain.ErrAgentUnavailable, err)
	}
	if len(parsed.Candidates) == 0 {
		return domain.AgentReply{}, fmt.Errorf("%w: no candidates in response", domain.ErrAgentUnavailable)
	}

	reply := decodeReply(parsed.Candidates[0].Content)
	span.SetAttributes(
		attribute.Int("ai.total_tokens", parsed.UsageMetadata.TotalTokenCount),
		attribute.Int("ai.function_calls", len(reply.Invocations)),
	)
	g.logger.Debug("gemini response",
		zap.String("model", g.model),
		zap.Int("total_tokens", parsed.UsageMetadata.TotalTokenCount),
		zap.Int("function_calls", len(reply.Invocations)),
		zap.Duration("took", time.Since(start)),
	)
	return reply, nil
}

func (g *Gemini) buildRequest(req domain.AgentRequest) generateRequest {
	contents := make([]content, 0, len(req.History)+1)
	for _, turn := range req.History {
		var role string
		switch turn.Role {
		case domain.RoleUser:
			role = "user"
		case domain.RoleAgent:
			role = "model"
		default:
			continue
		}
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: req.Message}}})

	out := generateRequest{
		Contents:          contents,
		SystemInstruction: &systemInstruction{Parts: []part{{Text: g.instruction(req.Catalog)}}},
		Tools:             []tool{{FunctionDeclarations: []functionDeclaration{addToCartDeclaration}}},
	}
	if g.temperature > 0 {
		out.GenerationConfig = &generationConfig{Temperature: g.temperature}
	}
	return out
}

func (g *Gemini) instruction(catalog []domain.CatalogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el Asistente de Ventas Virtual de %q. Tu objetivo es asesorar y ayudar a comprar.\n\n", g.storeName)
	b.WriteString("INVENTARIO ACTUALIZADO:\n")
	for _, e := range catalog {
		fmt.Fprintf(&b, "- ID: %s | Nombre: %s | Precio: $%d | Stock: %d | Categoría: %s\n", e.ID, e.Name, e.Price, e.Stock, e.Category)
	}
	b.WriteString(`
REGLAS DE COMPORTAMIENTO:
1. Solo recomiendas productos que existen en el INVENTARIO.
2. Si el usuario pide algo que NO está en la lista, informa cortésmente que no lo tenemos o que no hay stock.
3. Antes de agregar al carrito, SIEMPRE describe el producto (precio y nombre) y pregunta al usuario si desea agregarlo.
4. Si el usuario confirma, usa la herramienta 'addToCart'.
5. Sé breve y profesional.
6. Si el usuario envía una lista de productos, procesa uno por uno verificando stock.
`)
	return b.String()
}

func decodeReply(c content) domain.AgentReply {
	var (
		reply domain.AgentReply
		text  strings.Builder
	)
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			reply.Invocations = append(reply.Invocations, decodeCall(*p.FunctionCall))
			continue
		}
		text.WriteString(p.Text)
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply
}

func decodeCall(call functionCall) domain.ToolInvocation {
	inv := domain.ToolInvocation{Name: call.Name, Quantity: 1}
	if id, ok := call.Args["productId"].(string); ok {
		inv.ItemID = id
	}
	if q, ok := call.Args["quantity"].(float64); ok && q >= 1 {
		inv.Quantity = int(q)
	}
	return inv
}

func apiError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("gemini api error %d (%s): %s", status, er.Error.Status, er.Error.Message)
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("gemini api error %d: %s", status, strings.TrimSpace(string(body)))
}
