package common

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account profile defaults.
const (
	DefaultGroup = "default"
	DefaultPhoto = "https://i.imgur.com/wZKBHSI.png"
	DefaultPhone = "000-0000000"
	DefaultBio   = "bio"
	MaxBioLength = 250
)
