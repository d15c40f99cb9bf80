package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

var folder = cases.Fold()

// FoldUsername returns the key of a user document. GitHub logins are case
// insensitive, so are the keys.
func FoldUsername(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// UsersFile is the YAML document listing the logins allowed to use the service.
type UsersFile struct {
	Users []string `yaml:"users"`
}

// LoadUsersFile reads the allowed logins from path.
func LoadUsersFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f UsersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	return f.Users, nil
}

// Users manages the users collection.
type Users struct {
	store  domain.CollectionStore
	logger infra.Logger
}

// NewUsers creates a users manager over store.
func NewUsers(store domain.CollectionStore, logger infra.Logger) *Users {
	return &Users{store: store, logger: logger}
}

// Import adds the logins that are not registered yet and returns how many were
// added. Existing users keep their session.
func (u *Users) Import(ctx context.Context, logins []string) (int, error) {
	added := 0
	for _, login := range logins {
		login = strings.TrimSpace(login)
		if login == "" {
			continue
		}
		doc, err := domain.ToDocument(domain.User{ID: FoldUsername(login), Username: login})
		if err != nil {
			return added, err
		}
		_, err = u.store.InsertOne(ctx, domain.UsersCollection, doc)
		switch {
		case err == nil:
			added++
			u.logger.Info().Str("username", login).Msg("user registered")
		case errors.Is(err, domain.ErrDuplicate):
		default:
			return added, fmt.Errorf("register user %s: %w", login, err)
		}
	}
	return added, nil
}

// List returns the registered users ordered by key.
func (u *Users) List(ctx context.Context) ([]domain.User, error) {
	docs, err := u.store.Find(ctx, domain.UsersCollection, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Find loads the user registered under login.
func (u *Users) Find(ctx context.Context, login string) (domain.User, error) {
	doc, err := u.store.FindOne(ctx, domain.UsersCollection, domain.IDFilter(FoldUsername(login)))
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(doc)
}

func decodeUser(doc domain.Document) (domain.User, error) {
	var user domain.User
	if err := domain.FromDocument(doc, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
