// Package llm defines the universal completion types and the Provider
// interface implemented by the backend sub-packages (ollama, groq, vllm).
// Client wraps any Provider with retry and logging; the analysis and
// streaming components only ever see the Client.
package llm
