package tools

import "regexp"

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:\-]{1,64}$`)

// ValidateUserID accepts the opaque ids the front end sends (numeric ids,
// uuids, emails).
func ValidateUserID(id string) bool {
	return userIDPattern.MatchString(id)
}
