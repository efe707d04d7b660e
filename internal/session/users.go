// Package session handles trusted-claim login against the fixed user
// directory and tracks active sessions.
package session

import "gantry/api/internal/access"

// User is one directory entry. There are no passwords: login asserts a
// username and the directory supplies the rest.
type User struct {
	Username    string      `json:"username"`
	DisplayName string      `json:"name"`
	Department  string      `json:"department"`
	Role        access.Role `json:"role"`
}

var directory = []User{
	{Username: "admin", DisplayName: "系統管理員", Department: "ADMIN", Role: access.RoleAdmin},
	{Username: "proc_user", DisplayName: "採購小李", Department: "PROCUREMENT", Role: access.RoleProcurement},
	{Username: "ops_user", DisplayName: "營管小張", Department: "OPERATIONS", Role: access.RolePlanner},
	{Username: "qa_user", DisplayName: "品保小王", Department: "QUALITY", Role: access.RoleExecutor},
}

// Lookup finds a directory entry by username.
func Lookup(username string) (User, bool) {
	for _, u := range directory {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Users lists the directory, for the login picker.
func Users() []User {
	out := make([]User, len(directory))
	copy(out, directory)
	return out
}
