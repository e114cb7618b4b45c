// Package client talks to the trackvault HTTP API on behalf of the CLI.
//
// APIClient keeps the current token pair in memory, sends the access token
// as a Bearer header and, when a call comes back 401, exchanges the refresh
// token for a new pair once and replays the call.
//
// Transport failures are reported as ErrUnavailable; a 401 that survives the
// refresh attempt is ErrUnauthorized; every other non-2xx reply is an
// *APIError carrying the server's message.
package client
