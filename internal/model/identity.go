package model

// Identity is the signed-in user as stored locally. Its presence gates access
// to everything except login.
type Identity struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool {
	return i.Name == "" && i.Email == ""
}
