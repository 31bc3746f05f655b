// Package auth implements user accounts and the authorization model for the
// BrightMind backend.
//
// Accounts carry a role (user or admin), a blocked flag, and an email
// verification state. Authorization over the installation hierarchy is
// decided by an AccessScope resolved once per request: a request may act on a
// resource when the requester is an admin, owns the resource's installation,
// or holds an explicit grant for it in the permission allow-list.
//
// Password hashing uses Argon2id in PHC string format; access tokens are
// HS256 JWTs; password-reset and email-verification tokens are random
// 256-bit values with an expiry.
package auth
