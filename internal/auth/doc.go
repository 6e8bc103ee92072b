// Package auth provides authentication and authorization for the library.
//
// Users register themselves and stay inactive until an administrator
// approves them. Approval assigns a login id, generates a password and
// mails it; only the bcrypt hash is stored.
//
// Browsers authenticate with a session cookie managed by scs. API clients
// exchange a session (or credentials) for a short-lived JWT and send it as
// a Bearer token. Either way the middleware resolves an Identity once per
// request and stores it in the gin context:
//
//	who := auth.IdentityFrom(c)
//	if !who.HasRole(entities.UserRoleLibrarian, entities.UserRoleAdmin) { ... }
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>     # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_TOKEN_EXPIRY=720h                 # JWT lifetime
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Lockout threshold
//
// # Security Features
//
//   - bcrypt password hashing
//   - Session fixation protection via token renewal on login
//   - CSRF protection for cookie sessions
//   - Login throttling per client and (role, identifier), plus account lockout
//   - Security headers
package auth
