// Package credentials manages the OAuth2 credential used to read Google Sheets.
//
// A Manager owns the credential lifecycle. On the first call that needs
// access it loads the persisted token from a FileStore. When the file is
// absent, empty or not a JSON object it runs the authorization-code grant:
// it builds the consent URL, waits for a CodeProvider to deliver the code,
// exchanges it and persists the result.
//
// Two code providers exist. PromptCodeProvider prints the URL and reads the
// code from a terminal. CallbackCodeProvider is an http.Handler mounted on
// the service's redirect URI that receives the code from Google directly.
//
// Concurrent callers share a single in-flight authorization. The manager
// never inspects token expiry; the token source returned by EnsureAuthorized
// refreshes on demand and refreshed tokens are written back to the store.
package credentials
