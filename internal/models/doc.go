// Package models defines the core domain models for owedup.
//
// # Models
//
//   - Expense: a single monetary entry owned by one user with a settlement status
//   - User: a registered account, signed in by password or federated credential
//   - Identity: links a federated credential (provider + subject) to a user
//   - Session: one signed-in session, revoked on logout
//
// Expenses are create-only and reference their owner by ID string. There are
// no groups, friends or splits behind the screen names; those remain
// placeholders in the client.
package models
