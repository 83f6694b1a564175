package models

import "time"

// User is a registered identity. The moniker is a display name and is not
// unique; the public key is the unique, displayable handle. The private key
// is never stored, only its bcrypt hash.
type User struct {
	ID             int64
	Moniker        string
	PublicKey      string
	PrivateKeyHash string
	CreatedAt      time.Time
}
