package identity

import "github.com/pigeonchat/pigeon/internal/docstore"

// User is the profile record stored at users/{userId}. Contact references
// live on the record itself; sticker usage counts share the same document but
// are owned by the sticker ledger, which edits the raw "stickers" field so
// the two concerns never clobber each other.
type User struct {
	ID             string   `json:"userId"`
	Name           string   `json:"name"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	WelcomeMessage string   `json:"welcomeMessage"`
	ImageURL       string   `json:"imageUrl"`
	Contacts       []string `json:"contacts,omitempty"`
}

// ToValue encodes the profile fields for storage. The "stickers" field is
// deliberately not touched here; writers of whole User records must go
// through UpdateFields or TransactionalUpdate to preserve it.
func (u User) ToValue() docstore.Value {
	contacts := make([]any, len(u.Contacts))
	for i, c := range u.Contacts {
		contacts[i] = c
	}
	return docstore.Value{
		"userId":         u.ID,
		"name":           u.Name,
		"username":       u.Username,
		"email":          u.Email,
		"welcomeMessage": u.WelcomeMessage,
		"imageUrl":       u.ImageURL,
		"contacts":       contacts,
	}
}

// UserFromValue decodes a stored user document. Missing fields decode to
// zero values.
func UserFromValue(v docstore.Value) User {
	u := User{
		ID:             str(v["userId"]),
		Name:           str(v["name"]),
		Username:       str(v["username"]),
		Email:          str(v["email"]),
		WelcomeMessage: str(v["welcomeMessage"]),
		ImageURL:       str(v["imageUrl"]),
	}
	if raw, ok := v["contacts"].([]any); ok {
		for _, c := range raw {
			if id := str(c); id != "" {
				u.Contacts = append(u.Contacts, id)
			}
		}
	}
	return u
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
