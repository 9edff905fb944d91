// Package auth implements an identity core for JSON APIs: local
// username/password accounts, HMAC-signed bearer tokens, single-use password
// reset tokens, email verification, and Google federated login with account
// linking.
//
// The package is organized around two handler groups. LocalAuth covers
// registration, login, email verification and password recovery. OAuthLogin
// covers the Google redirect flow and direct ID token verification. Both
// issue tokens through a shared TokenCodec and read and write accounts
// through the AccountStore interface, with file-backed and postgres-backed
// implementations under stores/ and stores/gorm/.
//
// A minimal server wiring lives in cmd/server.
package auth
