// Package repeater provides an HTTP client for the Repeater flashcard API.
//
// # Overview
//
// The backend owns all scheduling: clients submit review feedback and read
// back the cards the server decides are due. This package mirrors the
// backend's JSON schema and wraps every endpoint the terminal client needs.
//
// The package is split into three files:
//
//   - client.go: HTTP transport, session handling, and endpoint methods
//   - types.go: data structures mirroring the API schema
//   - errors.go: sentinel errors and APIError
//
// # Sessions
//
// The backend issues access_token and refresh_token cookies on login. The
// client keeps them in a cookie jar and, when a TokenStore is configured,
// persists them so later runs start signed in.
//
// A 401 on any non-auth endpoint triggers one POST /auth/refresh followed by
// a single retry of the original request. Concurrent 401s share the same
// refresh call. If the refresh fails the stored session is cleared and the
// caller receives ErrUnauthorized.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Pass through a token bucket limiter (golang.org/x/time/rate)
//   - Carry an X-Request-ID header for log correlation
//   - Set User-Agent: repeater/0.1
//
// Non-2xx responses become *APIError with the backend's "detail" message.
//
// Example error messages:
//   - "execute request: dial tcp: connection refused"
//   - "api POST /cards returned status 422 Unprocessable Entity: Card must have contents"
//
// # Timestamps
//
// Timestamps stay as strings on the wire types. Parsed* helpers accept
// RFC3339 as well as the backend's naive UTC format; invalid or missing
// values return the zero time.
//
// # Thread Safety
//
// The Client is safe for concurrent use.
package repeater
