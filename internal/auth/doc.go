// Package auth provides authentication and authorisation for BudgetWise.
//
// It implements a three-role model (USER, ADMIN, BANNED) with:
//   - Argon2id password hashing, with legacy bcrypt digests verified and
//     upgraded on the next successful login
//   - Stateless HS256 session tokens carrying the username and role
//   - Single-use, hashed password reset tokens delivered through a Notifier
//   - A path-pattern access matrix evaluated against the identity bound to
//     the request context
//
// Identity resolution re-reads the account on every request, so a ban or
// promotion applies to tokens that were issued before it. Session tokens
// cannot be revoked before they expire.
package auth
