// Package magiclink provides passwordless email authentication (magic-link
// token issuance and verification, stateful repositories, HTTP helpers) for
// internal council tooling.
//
// Login tokens:
//   - LoginCodec mints and checks compact HMAC-SHA256 link tokens. Tokens are
//     scoped (email_login), carry the account email as subject, and are valid
//     through their exact expiry second. Verification is strict about check
//     order: signature is proven before the payload is ever parsed.
//   - TokenService issues the longer-lived session JWTs handed out once a link
//     has been verified. Session tokens are ordinary HS256 JWTs validated with
//     issuer and audience claims.
//
// Login flow:
//   - Auther orchestrates the whole flow: normalizes and gates the email
//     against the organizational domain, finds or registers the account,
//     delivers the link, and on verification establishes the session while
//     flagging accounts whose profile still needs completing. A LoginAttempt
//     tracks each flow through its state graph and ends either in an
//     established session or a terminal rejection with a recorded reason.
//   - When DEBUG and BYPASS_LOGIN are both enabled, StartLogin skips link
//     delivery entirely and establishes the session straight away.
//
// HTTP surface:
//   - RegisterLoginRoutes mounts the login form, link-sent page, magic-link
//     verification endpoint, and the profile-completion gate on a go-router
//     server. RouteAuthenticator handles the session cookie and protects
//     routes behind a valid session.
package magiclink
