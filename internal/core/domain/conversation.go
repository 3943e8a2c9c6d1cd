package domain

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleNotice Role = "notice"
)

// ToolAddToCart is the only command the language model may request.
const ToolAddToCart = "addToCart"

// ToolInvocation is a structured command emitted by the language model.
type ToolInvocation struct {
	Name     string `json:"name"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity,omitempty"`
}

// Turn is one append-only transcript entry.
type Turn struct {
	Role        Role             `json:"role"`
	Text        string           `json:"text"`
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CatalogEntry is the compact item shape sent to the language model.
type CatalogEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	Category string `json:"category"`
}

// AgentRequest carries everything the language model sees for one turn.
// History never contains notice turns and excludes the latest user message.
type AgentRequest struct {
	History []Turn
	Message string
	Catalog []CatalogEntry
}

// AgentReply is the language model's answer: free text, commands, or both.
type AgentReply struct {
	Text        string
	Invocations []ToolInvocation
}
