// Package session persists the API session between runs in a bbolt file
// under the data directory. Only cookies and the cached user profile are
// stored; all flashcard data lives on the server.
package session
