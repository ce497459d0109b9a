// Package token issues and validates opsdeck session tokens.
//
// Session tokens are HS256-signed JWTs carrying the user id, username and
// role. The signing secret comes from the OPSDECK_TOKEN_SECRET environment
// variable and is shared by every server instance behind a load balancer.
//
// # Basic Usage
//
//	secret, err := token.LoadSecret()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	issuer := token.NewIssuer(secret, 12*time.Hour)
//
//	signed, expiresAt, err := issuer.Issue(user.ID, user.Username, user.Role)
//
//	claims, err := issuer.Parse(signed)
//	if err != nil {
//	    // token.ErrExpired or token.ErrMalformed
//	}
package token
