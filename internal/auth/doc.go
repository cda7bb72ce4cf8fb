// Package auth authenticates operators of the graydb admin API.
//
// Accounts come from the security.admins section of the configuration and
// carry one of two roles: viewer (health, stats, metrics, live stream) or
// admin (everything a viewer sees plus the audit trail, which includes bound
// parameter values). Passwords are stored as Argon2id PHC strings and a
// successful login yields a short-lived HS256 access token.
package auth
