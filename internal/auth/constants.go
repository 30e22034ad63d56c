package auth

// AuthCookieName is the httpOnly cookie a browser session carries its token in.
// The HTTP middleware and the status-feed upgrade both read it.
const AuthCookieName = "billing_token"
