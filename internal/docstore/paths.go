package docstore

import "strings"

// Path layout. Construction is centralized here so no caller depends on the
// physical shape. The message log interleaves a fixed "log" segment so that
// document paths keep even depth on collection/document backends; the memory
// store treats the same paths literally.
//
//	users/{userId}                    User record (contacts and sticker
//	                                  usages live as fields of this document)
//	credentials/{username}            sign-in credential record
//	chats/{chatId}                    Chat record
//	messages/{chatId}/log/{msgId}     Message record

// Sep joins path segments.
const Sep = "/"

// UsersPath returns the users collection path.
func UsersPath() string { return "users" }

// UserPath returns the document path for a user record.
func UserPath(userID string) string { return "users" + Sep + userID }

// CredentialPath returns the document path for a username's credential record.
func CredentialPath(username string) string { return "credentials" + Sep + username }

// ChatsPath returns the chats collection path.
func ChatsPath() string { return "chats" }

// ChatPath returns the document path for a chat record.
func ChatPath(chatID string) string { return "chats" + Sep + chatID }

// MessagesPath returns the collection path of a chat's message log.
func MessagesPath(chatID string) string {
	return "messages" + Sep + chatID + Sep + "log"
}

// MessagePath returns the document path for a single message.
func MessagePath(chatID, messageID string) string {
	return MessagesPath(chatID) + Sep + messageID
}

// Split breaks a path into its segments.
func Split(path string) []string {
	return strings.Split(strings.Trim(path, Sep), Sep)
}
