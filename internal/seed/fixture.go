package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"threads/internal/models"
	"threads/internal/repository"
	"threads/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written data set, usually loaded from YAML:
//
//	users:
//	  - external_id: user_a
//	    username: alice
//	    name: Alice
//	threads:
//	  - author: alice
//	    text: first thread
//	    replies:
//	      - author: bob
//	        text: nice
type Fixture struct {
	Users   []FixtureUser   `yaml:"users"`
	Threads []FixtureThread `yaml:"threads"`
}

// FixtureUser is an onboarded profile.
type FixtureUser struct {
	ExternalID string `yaml:"external_id"`
	Username   string `yaml:"username"`
	Name       string `yaml:"name"`
	Bio        string `yaml:"bio"`
	Image      string `yaml:"image"`
}

// FixtureThread is a thread and its replies. Author is a username from
// the same fixture. Replies may nest.
type FixtureThread struct {
	Author  string          `yaml:"author"`
	Text    string          `yaml:"text"`
	Replies []FixtureThread `yaml:"replies"`
}

// LoadFixture decodes and validates a YAML fixture.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixture(f)
}

// Validate applies the same rules the API enforces and checks that every
// author is declared.
func (fx *Fixture) Validate() error {
	known := make(map[string]bool, len(fx.Users))
	externalIDs := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if strings.TrimSpace(u.ExternalID) == "" {
			return fmt.Errorf("users[%d]: external_id is required", i)
		}
		if externalIDs[u.ExternalID] {
			return fmt.Errorf("users[%d]: duplicate external_id %q", i, u.ExternalID)
		}
		externalIDs[u.ExternalID] = true

		err := validation.ValidateProfile(validation.Profile{
			Username: u.Username,
			Name:     u.Name,
			Bio:      u.Bio,
			Image:    u.Image,
		})
		if err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		username := strings.ToLower(strings.TrimSpace(u.Username))
		if known[username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, username)
		}
		known[username] = true
	}

	var check func(path string, threads []FixtureThread) error
	check = func(path string, threads []FixtureThread) error {
		for i, t := range threads {
			at := fmt.Sprintf("%s[%d]", path, i)
			if !known[strings.ToLower(t.Author)] {
				return fmt.Errorf("%s: unknown author %q", at, t.Author)
			}
			if err := validation.ValidateThreadText(t.Text); err != nil {
				return fmt.Errorf("%s: %w", at, err)
			}
			if err := check(at+".replies", t.Replies); err != nil {
				return err
			}
		}
		return nil
	}
	return check("threads", fx.Threads)
}

// ApplyFixture writes fx in one transaction. Users are upserted by external
// id, so re-applying a fixture updates profiles; threads are always added.
func ApplyFixture(ctx context.Context, db *gorm.DB, fx *Fixture) (*Summary, error) {
	summary := &Summary{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		threads := repository.NewThreadRepository(tx)

		ids := make(map[string]uint, len(fx.Users))
		for _, fu := range fx.Users {
			u := &models.User{
				ExternalID: fu.ExternalID,
				Username:   strings.ToLower(strings.TrimSpace(fu.Username)),
				Name:       strings.TrimSpace(fu.Name),
				Bio:        fu.Bio,
				Image:      fu.Image,
				Onboarded:  true,
			}
			if err := users.Upsert(ctx, u); err != nil {
				return fmt.Errorf("upsert user %s: %w", fu.ExternalID, err)
			}
			// ON CONFLICT does not report the existing id on every driver.
			stored, err := users.GetByExternalID(ctx, fu.ExternalID)
			if err != nil {
				return err
			}
			if stored == nil {
				return fmt.Errorf("upsert user %s: not found after write", fu.ExternalID)
			}
			ids[u.Username] = stored.ID
			summary.Users++
		}

		var write func(parentID *uint, threads []FixtureThread) error
		write = func(parentID *uint, list []FixtureThread) error {
			for _, ft := range list {
				t := &models.Thread{
					Text:     strings.TrimSpace(ft.Text),
					AuthorID: ids[strings.ToLower(ft.Author)],
					ParentID: parentID,
				}
				if err := threads.Create(ctx, t); err != nil {
					return fmt.Errorf("create thread: %w", err)
				}
				if parentID == nil {
					summary.Threads++
				} else {
					summary.Replies++
				}
				id := t.ID
				if err := write(&id, ft.Replies); err != nil {
					return err
				}
			}
			return nil
		}
		return write(nil, fx.Threads)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
