// Package provider groups the LLM transport bindings behind the Turn
// Controller's turn.Transport seam (spec.md §6 "LLM transport").
// Grounded on the teacher's internal/provider package: a small
// provider-name/auth-method metadata surface plus one concrete client
// per backend, generalized from the teacher's streaming-channel
// Stream/ListModels contract onto this engine's synchronous
// Send(ctx, messages, tools) -> CompletionResponse shape, since the
// Turn Controller consumes a completed response rather than a token
// stream.
package provider

// Name identifies a configured LLM backend.
type Name string

const (
	Anthropic Name = "anthropic"
	OpenAI    Name = "openai"
)

// AuthMethod mirrors the teacher's provider.AuthMethod, kept even
// though only api_key is wired today — the other values name the
// credential shapes a future binding (Bedrock, Vertex) would need.
type AuthMethod string

const (
	AuthAPIKey  AuthMethod = "api_key"
	AuthVertex  AuthMethod = "vertex"
	AuthBedrock AuthMethod = "bedrock"
)

// Meta is static metadata about a configured backend, mirroring the
// teacher's ProviderMeta.
type Meta struct {
	Provider    Name
	AuthMethod  AuthMethod
	EnvVars     []string
	DisplayName string
}

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID          string
	DisplayName string
}

// KnownProviders lists the backends this module ships a binding for.
func KnownProviders() []Meta {
	return []Meta{
		{Provider: Anthropic, AuthMethod: AuthAPIKey, EnvVars: []string{"ANTHROPIC_API_KEY"}, DisplayName: "Anthropic"},
		{Provider: OpenAI, AuthMethod: AuthAPIKey, EnvVars: []string{"OPENAI_API_KEY"}, DisplayName: "OpenAI"},
	}
}
