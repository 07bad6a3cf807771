package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memUserRepository is an in-memory UserRepository for tests. Setting fail
// makes every call return that error, simulating a store outage.
type memUserRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*UserRecord
	fail   error
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{byID: map[int64]*UserRecord{}}
}

func copyRecord(r *UserRecord) *UserRecord {
	cp := *r
	cp.FavoriteMovies = append([]int64(nil), r.FavoriteMovies...)
	return &cp
}

func (m *memUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, r := range m.byID {
		if r.Username == username {
			return copyRecord(r), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if r, ok := m.byID[id]; ok {
		return copyRecord(r), nil
	}
	return nil, ErrUserNotFound
}

func (m *memUserRepository) Create(ctx context.Context, u NewUser) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, r := range m.byID {
		if r.Username == u.Username {
			return nil, ErrUsernameTaken
		}
	}
	role := u.Role
	if role == "" {
		role = "user"
	}
	m.nextID++
	rec := &UserRecord{
		ID:             m.nextID,
		Username:       u.Username,
		PasswordHash:   u.PasswordHash,
		Name:           u.Name,
		Email:          u.Email,
		Birthday:       u.Birthday,
		Role:           role,
		CreatedAt:      time.Now(),
		FavoriteMovies: []int64{},
	}
	m.byID[rec.ID] = rec
	return copyRecord(rec), nil
}

func (m *memUserRepository) Update(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	for _, r := range m.byID {
		if r.ID != id && r.Username == upd.Username {
			return nil, ErrUsernameTaken
		}
	}
	rec.Username = upd.Username
	rec.Name = upd.Name
	rec.Email = upd.Email
	rec.Birthday = upd.Birthday
	if upd.PasswordHash != "" {
		rec.PasswordHash = upd.PasswordHash
	}
	return copyRecord(rec), nil
}

func (m *memUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUserRepository) AddFavorite(ctx context.Context, userID, movieID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	rec, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	for _, id := range rec.FavoriteMovies {
		if id == movieID {
			return nil
		}
	}
	rec.FavoriteMovies = append(rec.FavoriteMovies, movieID)
	sort.Slice(rec.FavoriteMovies, func(i, j int) bool { return rec.FavoriteMovies[i] < rec.FavoriteMovies[j] })
	return nil
}

func (m *memUserRepository) RemoveFavorite(ctx context.Context, userID, movieID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	rec, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	out := rec.FavoriteMovies[:0]
	for _, id := range rec.FavoriteMovies {
		if id != movieID {
			out = append(out, id)
		}
	}
	rec.FavoriteMovies = out
	return nil
}

func (m *memUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	for _, r := range m.byID {
		if r.Role == "admin" {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepository) List(ctx context.Context, page, perPage int) ([]UserListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, 0, m.fail
	}
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	items := make([]UserListItem, 0, len(ids))
	for _, id := range ids {
		r := m.byID[id]
		items = append(items, UserListItem{
			ID: r.ID, Username: r.Username, Name: r.Name,
			Email: r.Email, Role: r.Role, CreatedAt: r.CreatedAt,
		})
	}
	return items, len(items), nil
}

// memMovieRepository is an in-memory MovieRepository for tests.
type memMovieRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Movie
	fail   error
}

func newMemMovieRepository() *memMovieRepository {
	return &memMovieRepository{byID: map[int64]*Movie{}}
}

func (m *memMovieRepository) List(ctx context.Context) ([]Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.byID[id])
	}
	return out, nil
}

func (m *memMovieRepository) FindByTitle(ctx context.Context, title string) (*Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, mv := range m.byID {
		if mv.Title == title {
			cp := *mv
			return &cp, nil
		}
	}
	return nil, ErrMovieNotFound
}

func (m *memMovieRepository) GenreByName(ctx context.Context, name string) (*Genre, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, mv := range m.byID {
		if mv.Genre.Name == name {
			g := mv.Genre
			return &g, nil
		}
	}
	return nil, ErrMovieNotFound
}

func (m *memMovieRepository) DirectorByName(ctx context.Context, name string) (*Director, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, mv := range m.byID {
		if mv.Director.Name == name {
			d := mv.Director
			return &d, nil
		}
	}
	return nil, ErrMovieNotFound
}

func (m *memMovieRepository) Exists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memMovieRepository) Create(ctx context.Context, mv Movie) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	m.nextID++
	mv.ID = m.nextID
	m.byID[mv.ID] = &mv
	return mv.ID, nil
}
