// Package llm provides an OpenAI-compatible chat client for transcript
// analysis.
//
// The client sends a system/user prompt pair to a configured model and
// returns the plain-text completion. OpenRouter is the default endpoint;
// any OpenAI-compatible base URL works.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title, and
// timeout. When unconfigured, the base URL defaults to the OpenRouter API.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Generate: send system/user prompts, receive the text completion.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Context cancellation aborts retries immediately.
package llm
