package auth

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is the single failure returned by Authenticate. Unknown
// usernames and wrong passwords are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// dummyHash is verified when the username is unknown so that a failed lookup
// costs the same as a failed password comparison.
const dummyHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHRzb21lc2FsdA$3qLhgh8NCGT1nVY5u9aVbIo8y1mYfK8Cv1Rw5d3Ud1E"

// Credential is a single row of the credential table.
type Credential struct {
	// Username is the unique login name.
	Username string `yaml:"username"`
	// Role is the partition this user may query.
	Role string `yaml:"role"`
	// PasswordHash is the argon2id hash produced by HashPassword.
	PasswordHash string `yaml:"password_hash"`
}

// UserRecord is the identity returned by a successful authentication.
type UserRecord struct {
	// Username is the authenticated login name.
	Username string
	// Role is the user's configured role.
	Role string
}

// credentialsFile is the on-disk YAML shape of the credential table.
type credentialsFile struct {
	Users []Credential `yaml:"users"`
}

// CredentialTable is a fixed, read-only username → credential map. It is
// safe for concurrent use because it is never mutated after construction.
type CredentialTable struct {
	byName map[string]Credential
}

// NewCredentialTable builds a table from creds, rejecting duplicate or empty
// usernames, empty roles, and hashes that cannot be decoded.
func NewCredentialTable(creds []Credential) (*CredentialTable, error) {
	t := &CredentialTable{byName: make(map[string]Credential, len(creds))}
	for i, c := range creds {
		if c.Username == "" {
			return nil, fmt.Errorf("auth: credential %d: username is required", i)
		}
		if c.Role == "" {
			return nil, fmt.Errorf("auth: credential %q: role is required", c.Username)
		}
		if _, _, _, err := decodeHash(c.PasswordHash); err != nil {
			return nil, fmt.Errorf("auth: credential %q: %w", c.Username, err)
		}
		if _, dup := t.byName[c.Username]; dup {
			return nil, fmt.Errorf("auth: duplicate username %q", c.Username)
		}
		t.byName[c.Username] = c
	}
	return t, nil
}

// LoadCredentials reads a YAML credential table from path:
//
//	users:
//	  - username: alice
//	    role: engineering
//	    password_hash: $argon2id$v=19$...
func LoadCredentials(path string) (*CredentialTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read credentials %s: %w", path, err)
	}

	var f credentialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("auth: parse credentials %s: %w", path, err)
	}

	return NewCredentialTable(f.Users)
}

// Len returns the number of credentials in the table.
func (t *CredentialTable) Len() int { return len(t.byName) }

// Authenticate verifies username and password against the table.
func (t *CredentialTable) Authenticate(username, password string) (UserRecord, error) {
	c, ok := t.byName[username]
	if !ok {
		_, _ = VerifyPassword(dummyHash, password)
		return UserRecord{}, ErrInvalidCredentials
	}

	match, err := VerifyPassword(c.PasswordHash, password)
	if err != nil || !match {
		return UserRecord{}, ErrInvalidCredentials
	}

	return UserRecord{Username: c.Username, Role: c.Role}, nil
}
