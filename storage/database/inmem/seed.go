package inmemdb

import (
	"encoding/json"
	"io/fs"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

const usersFixture = "users.json"

// userFixture carries either a clear password or its bcrypt hash.
type userFixture struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         user.Role `json:"role"`
	Password     string    `json:"password,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	IsActive     bool      `json:"is_active"`
}

// Seed loads `users.json` and one `<collection>.json` per collection found under dir.
// Records are stored as they are written, whatever their field names.
func (db *DB) Seed(fsys fs.FS, dir string) error {
	if err := db.seedUsers(fsys, path.Join(dir, usersFixture)); err != nil {
		return err
	}

	repo := NewRecordRepository(db)
	for _, c := range registry.Collections {
		fp := path.Join(dir, string(c)+".json")
		data, err := fs.ReadFile(fsys, fp)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Wrapf(err, "reading %s", fp)
		}
		v, err := school.Decode(data)
		if err != nil {
			return errors.Wrapf(err, "decoding %s", fp)
		}
		items, ok := v.([]interface{})
		if !ok {
			return errors.Errorf("%s: fixture is not an array", fp)
		}
		for i, rec := range school.Records(items) {
			if _, err = repo.CreateRecord(c, rec); err != nil {
				return errors.Wrapf(err, "%s #%d", fp, i)
			}
		}
	}
	return nil
}

func (db *DB) seedUsers(fsys fs.FS, fp string) error {
	data, err := fs.ReadFile(fsys, fp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", fp)
	}
	var fixtures []userFixture
	if err = json.Unmarshal(data, &fixtures); err != nil {
		return errors.Wrapf(err, "decoding %s", fp)
	}

	repo := NewUserRepository(db)
	now := time.Now().UTC()
	for _, f := range fixtures {
		usr := user.User{
			ID:        f.ID,
			Name:      f.Name,
			Email:     f.Email,
			Role:      f.Role,
			IsActive:  f.IsActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if f.PasswordHash != "" {
			usr.PasswordHash = []byte(f.PasswordHash)
		} else if err = usr.SetPassword(f.Password); err != nil {
			return errors.Wrapf(err, "hashing password of %s", f.Email)
		}
		if _, err = repo.CreateUser(usr); err != nil {
			return errors.Wrapf(err, "creating %s", f.Email)
		}
	}
	return nil
}

// UsersFixture renders every user in the layout of `users.json`.
// Passwords are only written as hashes.
func (db *DB) UsersFixture() ([]byte, error) {
	users, err := NewUserRepository(db).FilterUsers(user.QueryFilter{})
	if err != nil {
		return nil, err
	}
	fixtures := make([]userFixture, 0, len(users))
	for _, u := range users {
		fixtures = append(fixtures, userFixture{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			Role:         u.Role,
			PasswordHash: string(u.PasswordHash),
			IsActive:     u.IsActive,
		})
	}
	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding users")
	}
	return append(data, '\n'), nil
}
