package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMovieNotFound is returned when no movie matches the given title or id.
var ErrMovieNotFound = errors.New("movie not found")

type Genre struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Director struct {
	Name  string     `json:"name"`
	Bio   string     `json:"bio"`
	Birth *time.Time `json:"birth"`
	Death *time.Time `json:"death"`
}

// Movie is a catalog entry. Genre and director are denormalized onto the
// movie row; the documents in the original store carried them inline the
// same way.
type Movie struct {
	ID          int64    `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genre       Genre    `json:"genre"`
	Director    Director `json:"director"`
	ImagePath   string   `json:"imagePath"`
	Featured    bool     `json:"featured"`
}

// MovieRepository defines read and seed operations for the catalog.
type MovieRepository interface {
	List(ctx context.Context) ([]Movie, error)
	FindByTitle(ctx context.Context, title string) (*Movie, error)
	GenreByName(ctx context.Context, name string) (*Genre, error)
	DirectorByName(ctx context.Context, name string) (*Director, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, m Movie) (int64, error)
}

// PgMovieRepository implements MovieRepository using pgxpool.
type PgMovieRepository struct {
	db *pgxpool.Pool
}

func NewPgMovieRepository(db *pgxpool.Pool) *PgMovieRepository {
	return &PgMovieRepository{db: db}
}

const movieSelect = `
SELECT id, title, description, genre_name, genre_description,
       director_name, director_bio, director_birth, director_death,
       image_path, featured
FROM movies
`

func scanMovie(row pgx.Row) (*Movie, error) {
	var m Movie
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Genre.Name, &m.Genre.Description,
		&m.Director.Name, &m.Director.Bio, &m.Director.Birth, &m.Director.Death,
		&m.ImagePath, &m.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgMovieRepository) List(ctx context.Context) ([]Movie, error) {
	rows, err := r.db.Query(ctx, movieSelect+`ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PgMovieRepository) FindByTitle(ctx context.Context, title string) (*Movie, error) {
	return scanMovie(r.db.QueryRow(ctx, movieSelect+`WHERE title=$1`, title))
}

func (r *PgMovieRepository) GenreByName(ctx context.Context, name string) (*Genre, error) {
	const q = `SELECT genre_name, genre_description FROM movies WHERE genre_name=$1 LIMIT 1`
	var g Genre
	if err := r.db.QueryRow(ctx, q, name).Scan(&g.Name, &g.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *PgMovieRepository) DirectorByName(ctx context.Context, name string) (*Director, error) {
	const q = `SELECT director_name, director_bio, director_birth, director_death FROM movies WHERE director_name=$1 LIMIT 1`
	var d Director
	if err := r.db.QueryRow(ctx, q, name).Scan(&d.Name, &d.Bio, &d.Birth, &d.Death); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgMovieRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT 1 FROM movies WHERE id=$1`
	var one int
	if err := r.db.QueryRow(ctx, q, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgMovieRepository) Create(ctx context.Context, m Movie) (int64, error) {
	const q = `
INSERT INTO movies (title, description, genre_name, genre_description,
                    director_name, director_bio, director_birth, director_death,
                    image_path, featured)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q, m.Title, m.Description, m.Genre.Name, m.Genre.Description,
		m.Director.Name, m.Director.Bio, m.Director.Birth, m.Director.Death,
		m.ImagePath, m.Featured).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
