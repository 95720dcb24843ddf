// Package config holds the domain-level tunables for the flow graph model.
// These are business rules, not deployment settings; deployment configuration
// lives in infrastructure/config.
package config

import "time"

// DomainConfig holds configurable business rules
type DomainConfig struct {
	// MaxNodesPerGraph limits how many nodes a single flow graph may hold
	MaxNodesPerGraph int

	// MaxEdgesPerGraph limits how many edges a single flow graph may hold
	MaxEdgesPerGraph int

	// FallbackMaxOutputs applies when a node type is missing from the catalog
	FallbackMaxOutputs int

	// AutoSaveDebounce is the quiet period before a mutated flow is persisted.
	// A new mutation inside the window restarts the timer.
	AutoSaveDebounce time.Duration

	// RenderThrottle is the window inside which repeated render requests
	// are dropped rather than queued.
	RenderThrottle time.Duration

	// SnippetMaxRunes is the length at which node snippets are truncated
	// for display.
	SnippetMaxRunes int
}

// DefaultDomainConfig returns the default business rule configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerGraph:   1000,
		MaxEdgesPerGraph:   2000,
		FallbackMaxOutputs: 99,
		AutoSaveDebounce:   1500 * time.Millisecond,
		RenderThrottle:     50 * time.Millisecond,
		SnippetMaxRunes:    105,
	}
}
