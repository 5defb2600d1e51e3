package model

import "storefront-gateway/internal/resilience"

// ChatRequest is a message sent by the storefront chat widget.
type ChatRequest struct {
	Message string                     `json:"message"`
	Action  *resilience.OriginalAction `json:"action,omitempty"`
}

// Product is a product mention extracted from an assistant reply.
type Product struct {
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
}

// ChatResult is what the chat widget renders for one exchange.
type ChatResult struct {
	Reply    string                      `json:"reply"`
	Products []Product                   `json:"products,omitempty"`
	Fallback bool                        `json:"fallback"`
	Error    *resilience.ClassifiedError `json:"error,omitempty"`
	Actions  []resilience.Action         `json:"actions,omitempty"`
}
