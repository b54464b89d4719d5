// Package relay implements a small backend relay for an eWallet checkout
// page. The browser never sees the Orchestra API key: it talks to the relay,
// and the relay forwards to the upstream payment orchestration API with the
// key injected.
//
// # Endpoints
//
// Use [NewHandler] with a [Config] and an [Orchestrator] (usually a [Client])
// to expose:
//
//   - GET /api/config reports which settings are present, never their values.
//   - POST /api/create-session opens a CHARGE session upstream and returns its token.
//   - POST /api/validate-payment asks upstream to validate a widget result token.
//
// Upstream failures keep their HTTP status and surface the upstream body as
// the details field of an [Error]. Transport failures collapse to a generic
// 500 and the cause is only logged.
//
// # Signed requests
//
// Handler options such as [WithSignatureVerifier] and
// [WithRequireSignedRequests] let a deployment require that the checkout
// client signs its requests with a shared key, see the signature package.
// Signing is meant for server-side or CLI callers only. A key shipped to a
// browser checkout page is readable by anyone who loads the page.
//
// The checkout subpackage contains the client side of the flow.
package relay
