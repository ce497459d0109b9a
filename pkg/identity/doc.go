// Package identity provides authenticated identity management for requests.
//
// This package separates the concept of an authenticated identity from the
// raw token parsing. An Identity combines session token claims (user id,
// username, role) with request-specific context (remote IP).
//
// # Basic Usage
//
//	// Create identity from parsed token claims
//	id := identity.FromClaims(claims)
//
//	// Add request context
//	id.WithRemoteIP(clientIP)
//
//	// Store in request context
//	ctx = identity.Set(ctx, id)
//
//	// Retrieve from context
//	id, ok := identity.Get(ctx)
//
// # Roles
//
// Authorization is role-based with three levels: admin, operator and
// viewer. Endpoints gate writes on CanOperate and administrative surfaces
// (user management, credential reveal, settings) on IsAdmin.
package identity
