// Package identity supplies the verified user identity (an email address) for
// each request.
//
// Users sign in with Google. After the OAuth code exchange the verified email
// is read from the Google userinfo API and sealed into an HS256 session token,
// carried either in the session cookie or as a bearer token. Attach resolves
// the token on every request and stores the email in the request context;
// it never rejects a request, leaving that decision to the handlers.
package identity
