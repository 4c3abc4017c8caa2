// Package password hashes and verifies user passwords. Stored hashes are
// self-describing: bcrypt hashes start with "$2", argon2id hashes use the PHC
// string format "$argon2id$v=19$m=...,t=...,p=...$salt$hash".
package password

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch indicates the password does not match the hash.
	ErrMismatch = errors.New("password does not match")
	// ErrUnknownFormat indicates the stored hash is in no supported format.
	ErrUnknownFormat = errors.New("unknown password hash format")
)

// Hasher produces encoded password hashes.
type Hasher interface {
	Hash(password string) (string, error)
}

// Compare checks plain against encoded. It returns nil on match, ErrMismatch
// on a wrong password, and another error when the hash cannot be used. A panic
// inside the underlying library is reported as an error.
func Compare(encoded, plain string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("password compare: %v", r)
		}
	}()

	switch {
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		err = bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return err
	case strings.HasPrefix(encoded, "$"+argon2ID+"$"):
		ok, err := verifyArgon2(plain, encoded)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMismatch
		}
		return nil
	default:
		return ErrUnknownFormat
	}
}

// Bcrypt hashes with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	Cost int
}

// Hash implements Hasher.
func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// dummyHash is compared against when a login names an unknown user so the
// response takes about as long as a wrong password would.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("fintrack-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// CompareDummy burns one bcrypt comparison. Its result is always discarded.
func CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(plain))
}
