package assistant

import (
	"strings"

	"storefront-gateway/internal/resilience"
)

// topic is one canned answer and the keywords that select it.
type topic struct {
	keywords []string
	reply    string
}

// Fallback answers chat messages locally while the backend is unavailable.
// Every reply starts with the sparkle glyph so the widget can mark it.
type Fallback struct {
	topics  []topic
	general string
}

// NewFallback returns the default canned responder.
func NewFallback() *Fallback {
	return &Fallback{
		topics: []topic{
			{
				keywords: []string{"order", "shipping", "delivery", "track", "refund", "return"},
				reply: "Our assistant is taking a short break, but your order details are always " +
					"available under Account > Orders. Returns are accepted within 30 days of delivery.",
			},
			{
				keywords: []string{"gift", "present", "birthday", "anniversary"},
				reply: "While our assistant reconnects, here are a few gift favourites:\n" +
					"1. **Discovery Set** by Maison Lune ($48) - five travel sprays to explore the collection\n" +
					"2. **Rose Nocturne** by Maison Lune ($120) - velvet rose with a warm amber base",
			},
			{
				keywords: []string{"floral", "rose", "jasmine", "flower", "peony"},
				reply: "While our assistant reconnects, these florals are customer favourites:\n" +
					"1. **Rose Nocturne** by Maison Lune ($120) - velvet rose with a warm amber base\n" +
					"2. **Jardin Blanc** by Atelier Sel ($95) - jasmine and white tea, light and airy",
			},
			{
				keywords: []string{"wood", "woody", "oud", "cedar", "sandalwood", "smoky"},
				reply: "While our assistant reconnects, try one of our woody signatures:\n" +
					"1. **Cedar Atlas** by Atelier Sel ($110) - dry cedar and vetiver\n" +
					"2. **Oud Ember** by Maison Lune ($160) - smoky oud softened with vanilla",
			},
			{
				keywords: []string{"fresh", "citrus", "summer", "light", "clean"},
				reply: "While our assistant reconnects, here are our freshest picks:\n" +
					"1. **Bergamot Tide** by Atelier Sel ($85) - sparkling bergamot over sea salt\n" +
					"2. **Jardin Blanc** by Atelier Sel ($95) - jasmine and white tea, light and airy",
			},
		},
		general: "Our assistant is temporarily unavailable. Meanwhile, you can browse the full " +
			"collection or try one of our bestsellers:\n" +
			"1. **Rose Nocturne** by Maison Lune ($120) - velvet rose with a warm amber base\n" +
			"2. **Bergamot Tide** by Atelier Sel ($85) - sparkling bergamot over sea salt",
	}
}

// Respond picks the first topic whose keyword appears in the message.
func (f *Fallback) Respond(message string) string {
	lower := strings.ToLower(message)
	for _, t := range f.topics {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return string(resilience.GlyphSparkle) + " " + t.reply
			}
		}
	}
	return string(resilience.GlyphSparkle) + " " + f.general
}
