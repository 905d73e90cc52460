// Package factory maps a backend kind ("openai-compatible",
// "anthropic-compatible") to the constructor of the provider that speaks it.
// Kinds can be registered at runtime without touching the dispatch code.
package factory
