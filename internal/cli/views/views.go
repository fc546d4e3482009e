// Package views is the portal's navigation table: which screen a user ends up
// on for a requested screen, given whether they are logged in and whether
// they are an administrator.
package views

import "github.com/shuportal/portal/internal/cli/session"

// View names a portal screen
type View string

const (
	Home            View = "home"
	Account         View = "account"
	Admin           View = "admin"
	Login           View = "login"
	SessionExpired  View = "session-expired"
	Logout          View = "logout"
	RegisterStudent View = "register-student"
	RegisterParent  View = "register-parent"
	ForgetPassword  View = "forget-password"
	ResetPassword   View = "reset-password"
)

var titles = map[View]string{
	Home:            "Home",
	Account:         "Account",
	Admin:           "Admin",
	Login:           "Login",
	SessionExpired:  "Session Expired",
	Logout:          "Logout",
	RegisterStudent: "Register Student",
	RegisterParent:  "Register Parent",
	ForgetPassword:  "Forget Password",
	ResetPassword:   "Reset Password",
}

// Title returns the human readable screen title
func (v View) Title() string {
	if t, ok := titles[v]; ok {
		return t
	}
	return string(v)
}

// Href returns the web client's hash route for v
func (v View) Href() string {
	if v == Home {
		return "/"
	}
	return "/#" + string(v)
}

// guestOnly screens send logged in users to their account
var guestOnly = map[View]bool{
	Home:            true,
	Login:           true,
	SessionExpired:  true,
	RegisterStudent: true,
	RegisterParent:  true,
	ForgetPassword:  true,
	ResetPassword:   true,
}

// Resolve follows redirects from requested until it reaches the screen that
// is shown for sess. A nil sess means logged out.
func Resolve(requested View, sess *session.AuthSession) View {
	loggedIn := sess != nil

	switch {
	case guestOnly[requested]:
		if loggedIn {
			return Resolve(Account, sess)
		}
		return requested
	case requested == Account:
		if !loggedIn {
			return Login
		}
		if sess.IsAdmin {
			return Admin
		}
		return Account
	case requested == Admin:
		if !loggedIn {
			return Login
		}
		if !sess.IsAdmin {
			return Account
		}
		return Admin
	case requested == Logout:
		if !loggedIn {
			return Home
		}
		return Logout
	default:
		return Home
	}
}
