// Package llm holds the HTTP error mapping shared by the language model
// adapters in its subpackages.
//
// Each provider adapter translates its transport failures onto the domain
// inference errors so the rate limiter can decide what to retry:
//
//   - network failures, 408, 429 and 5xx responses wrap domain.ErrTransient
//   - 402 responses and quota bodies wrap domain.ErrQuotaExceeded
//   - any other non-2xx response is returned as a plain StatusError
package llm
