// Package auth implements the browser-based OAuth2 authorization-code flow
// without a redirect URI: the user opens the consent page, copies the code
// the provider shows, and pastes it back for exchange.
//
// Tokens obtained here are kept in the settings record; PersistentTokenSource
// writes refreshed tokens back so the next start reuses them.
package auth
