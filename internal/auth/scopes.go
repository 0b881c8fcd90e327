package auth

// Scopes are the Google OAuth scopes requested during authentication.
//
// They cover mail read/modify/labels, full calendar access, and the identity
// scopes needed to resolve the authenticated email address.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.labels",
	"https://www.googleapis.com/auth/calendar",
	"openid",
	"email",
}
