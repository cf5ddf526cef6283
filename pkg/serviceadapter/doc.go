// Package serviceadapter talks to the Service REST API exposed by a
// worker's VM (spec §4.1, source B). Service is the seam the command
// handlers depend on; Client is a plain net/http-based implementation in
// the style of the pack's HTTP client adapters (e.g. R3E-Network's
// globalsigner client): NewRequestWithContext, a bearer-token header, a
// status-code check, then json.Unmarshal into the typed response.
package serviceadapter
