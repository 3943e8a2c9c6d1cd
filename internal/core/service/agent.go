package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/port"
)

type AgentState int32

const (
	StateIdle AgentState = iota
	StateDispatching
	StateInterpreting
)

func (s AgentState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateInterpreting:
		return "interpreting"
	default:
		return fmt.Sprintf("AgentState(%d)", int32(s))
	}
}

const (
	ReplyApology       = "Sorry, I'm having trouble reaching the assistant right now. Please try again in a moment."
	ReplyNotConfigured = "The assistant is not configured yet. You can still browse the catalog and add products by hand."
	ReplyAdded         = "Done! I've updated your cart. Is there anything else you need?"
	ReplyNothingAdded  = "I couldn't add anything to your cart. Is there something else I can help with?"
	ReplyEmpty         = "Sorry, I didn't catch that. Could you rephrase?"
)

// toolFunc executes one invocation against the catalog snapshot the model
// was shown and reports the notice text and the number of units added.
type toolFunc func(ctx context.Context, inv domain.ToolInvocation, catalog map[string]domain.InventoryItem) (string, int)

// Agent turns free text into transcript turns and cart mutations. The
// transcript is its only memory; it calls the model at most once per Send.
type Agent struct {
	sessionID  string
	model      port.LanguageModel
	inventory  port.InventoryRepository
	ledger     *CartLedger
	transcript port.TranscriptStore
	logger     *zap.Logger
	now        func() time.Time

	state atomic.Int32
	tools map[string]toolFunc
}

func NewAgent(sessionID string, model port.LanguageModel, inventory port.InventoryRepository, ledger *CartLedger, transcript port.TranscriptStore, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		sessionID:  sessionID,
		model:      model,
		inventory:  inventory,
		ledger:     ledger,
		transcript: transcript,
		logger:     logger.With(zap.String("session_id", sessionID)),
		now:        time.Now,
	}
	a.tools = map[string]toolFunc{
		domain.ToolAddToCart: a.addToCart,
	}
	return a
}

func (a *Agent) State() AgentState {
	return AgentState(a.state.Load())
}

// Transcript returns every turn recorded for the session, notices included.
func (a *Agent) Transcript(ctx context.Context) ([]domain.Turn, error) {
	return a.transcript.Load(ctx, a.sessionID)
}

// Send records the user's message, asks the model once and records the
// resulting turns. It returns the turns appended by this call. Blank input
// is ignored; a Send while another is running fails with ErrAgentBusy.
// Model failures become an apology turn, not an error.
func (a *Agent) Send(ctx context.Context, text string) (turns []domain.Turn, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !a.state.CompareAndSwap(int32(StateIdle), int32(StateDispatching)) {
		return nil, domain.ErrAgentBusy
	}
	defer a.state.Store(int32(StateIdle))

	ctx, span := tracer.Start(ctx, "agent.send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	history, err := a.transcript.Load(ctx, a.sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	rec := &recorder{agent: a}
	if err := rec.add(ctx, domain.Turn{Role: domain.RoleUser, Text: text}); err != nil {
		return nil, err
	}

	items, err := a.inventory.List(ctx)
	if err != nil {
		a.logger.Error("catalog snapshot failed", zap.Error(err))
		err = rec.add(ctx, domain.Turn{Role: domain.RoleAgent, Text: ReplyApology})
		return rec.turns, err
	}

	reply, err := a.model.Converse(ctx, domain.AgentRequest{
		History: modelHistory(history),
		Message: text,
		Catalog: catalogEntries(items),
	})
	a.state.Store(int32(StateInterpreting))

	if err != nil {
		a.logger.Error("language model call failed", zap.Error(err))
		msg := ReplyApology
		if errors.Is(err, domain.ErrAgentNotConfigured) {
			msg = ReplyNotConfigured
		}
		err = rec.add(ctx, domain.Turn{Role: domain.RoleAgent, Text: msg})
		return rec.turns, err
	}

	span.SetAttributes(attribute.Int("agent.invocations", len(reply.Invocations)))
	if len(reply.Invocations) == 0 {
		msg := reply.Text
		if strings.TrimSpace(msg) == "" {
			msg = ReplyEmpty
		}
		err = rec.add(ctx, domain.Turn{Role: domain.RoleAgent, Text: msg})
		return rec.turns, err
	}

	err = a.interpret(ctx, rec, reply, indexItems(items))
	return rec.turns, err
}

func (a *Agent) interpret(ctx context.Context, rec *recorder, reply domain.AgentReply, catalog map[string]domain.InventoryItem) error {
	total := 0
	for _, inv := range reply.Invocations {
		tool, ok := a.tools[inv.Name]
		if !ok {
			a.logger.Warn("unsupported tool invocation", zap.String("tool", inv.Name))
			if err := rec.add(ctx, domain.Turn{Role: domain.RoleNotice, Text: fmt.Sprintf("Action %q is not supported and was skipped.", inv.Name)}); err != nil {
				return err
			}
			continue
		}
		notice, added := tool(ctx, inv, catalog)
		total += added
		if err := rec.add(ctx, domain.Turn{Role: domain.RoleNotice, Text: notice}); err != nil {
			return err
		}
	}

	msg := reply.Text
	if strings.TrimSpace(msg) == "" {
		msg = ReplyAdded
		if total == 0 {
			msg = ReplyNothingAdded
		}
	}
	return rec.add(ctx, domain.Turn{Role: domain.RoleAgent, Text: msg, Invocations: reply.Invocations})
}

func (a *Agent) addToCart(ctx context.Context, inv domain.ToolInvocation, catalog map[string]domain.InventoryItem) (string, int) {
	item, ok := catalog[inv.ItemID]
	if !ok {
		return fmt.Sprintf("Product %s was not found in the catalog.", inv.ItemID), 0
	}

	want := inv.Quantity
	if want < 1 {
		want = 1
	}

	added := 0
	outcome := addApplied
	var fault error
	for added < want {
		outcome, fault = a.ledger.add(ctx, item.ID)
		if fault != nil {
			a.logger.Error("add to cart failed", zap.String("item_id", item.ID), zap.Error(fault))
			break
		}
		if outcome != addApplied {
			break
		}
		added++
	}

	switch {
	case fault != nil:
		return fmt.Sprintf("Could not reach the inventory for %s, please try again (%d of %d added).", item.Name, added, want), added
	case outcome == addFrozen:
		return fmt.Sprintf("Could not add %s: checkout in progress (%d of %d added).", item.Name, added, want), added
	case added == 0:
		return fmt.Sprintf("Could not add %s: no more stock available (0 of %d added).", item.Name, want), 0
	case added < want:
		return fmt.Sprintf("Added %d of %d x %s to the cart; stock limit reached.", added, want, item.Name), added
	default:
		return fmt.Sprintf("Added %d x %s to the cart.", added, item.Name), added
	}
}

type recorder struct {
	agent *Agent
	turns []domain.Turn
}

func (r *recorder) add(ctx context.Context, turn domain.Turn) error {
	turn.CreatedAt = r.agent.now()
	if err := r.agent.transcript.Append(ctx, r.agent.sessionID, turn); err != nil {
		return fmt.Errorf("append %s turn: %w", turn.Role, err)
	}
	r.turns = append(r.turns, turn)
	return nil
}

// modelHistory drops notice turns; they are for the shopper only.
func modelHistory(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == domain.RoleNotice {
			continue
		}
		out = append(out, t)
	}
	return out
}

func catalogEntries(items []domain.InventoryItem) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CatalogEntry{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Stock:    item.Stock,
			Category: item.Category,
		})
	}
	return out
}
