// Package userdir keeps the in-memory registry of accounts, keyed by id
// and queryable by email.
package userdir

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ArcaneCipher/tinyapp/internal/keygen"
	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/user"
)

// MinPasswordLength is the shortest raw password Create accepts.
const MinPasswordLength = 8

// Directory owns the users map. All access goes through its methods so the
// uniqueness invariants for ids and emails cannot be bypassed.
type Directory struct {
	mu         sync.RWMutex
	users      map[string]*user.User
	keys       *keygen.Generator
	bcryptCost int
}

func New(keys *keygen.Generator, bcryptCost int) *Directory {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Directory{
		users:      map[string]*user.User{},
		keys:       keys,
		bcryptCost: bcryptCost,
	}
}

// Create registers a new account. The raw password is hashed with bcrypt
// before it is stored; the id is generated against the directory's own
// id space.
func (d *Directory) Create(email, rawPassword string) (*user.User, error) {
	if email == "" || len(rawPassword) < MinPasswordLength {
		return nil, models.ErrInvalidCredentials
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findByEmailLocked(email) != nil {
		return nil, models.ErrEmailAlreadyRegistered
	}

	id, err := d.keys.Generate(func(key string) bool {
		_, taken := d.users[key]
		return taken
	})
	if err != nil {
		return nil, fmt.Errorf("generating user id: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), d.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	usr := &user.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
	}
	d.users[id] = usr

	return usr, nil
}

// FindByEmail returns the account registered under email, or nil.
// Matching is a case-sensitive exact comparison.
func (d *Directory) FindByEmail(email string) *user.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.findByEmailLocked(email)
}

// FindByID returns the account with the given id, or nil.
func (d *Directory) FindByID(id string) *user.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.users[id]
}

// Verify checks the supplied credentials and returns the matching account.
// A nonexistent email and a wrong password both return nil; the two failure
// modes are indistinguishable to the caller so accounts cannot be
// enumerated through the login form.
func (d *Directory) Verify(email, rawPassword string) *user.User {
	usr := d.FindByEmail(email)
	if usr == nil {
		return nil
	}
	if bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(rawPassword)) != nil {
		return nil
	}
	return usr
}

// Count returns the number of registered accounts.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.users)
}

func (d *Directory) findByEmailLocked(email string) *user.User {
	for _, usr := range d.users {
		if usr.Email == email {
			return usr
		}
	}
	return nil
}
