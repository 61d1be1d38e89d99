// Package model defines the provider-agnostic abstractions for talking to a
// generative text backend.
//
// Core goals:
//   - Keep request/reply shapes minimal and transport independent
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Report failures as typed TransportError values whose retryability a
//     retry policy can inspect
//   - Facilitate lightweight mocking for tests (MockBackend)
//
// Providers (OpenAI, Anthropic, Ollama) implement the Backend interface in
// subpackages so higher layers remain decoupled from vendor SDKs.
package model
