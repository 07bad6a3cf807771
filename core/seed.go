package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const maxSeedEntries = 1000

type movieSeedDoc struct {
	Movies []movieSeedEntry `yaml:"movies"`
}

type movieSeedEntry struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Genre       struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"genre"`
	Director struct {
		Name  string `yaml:"name"`
		Bio   string `yaml:"bio"`
		Birth string `yaml:"birth"`
		Death string `yaml:"death"`
	} `yaml:"director"`
	ImagePath string `yaml:"image_path"`
	Featured  bool   `yaml:"featured"`
}

// ParseMovieSeed converts a YAML seed document into movies. Titles must be
// present and unique within the document; director dates use YYYY-MM-DD.
func ParseMovieSeed(data []byte) ([]Movie, error) {
	if len(data) == 0 {
		return nil, errors.New("seed document is empty")
	}

	var doc movieSeedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid seed yaml: %w", err)
	}
	if len(doc.Movies) == 0 {
		return nil, errors.New("seed document contains no movies")
	}
	if len(doc.Movies) > maxSeedEntries {
		return nil, fmt.Errorf("too many seed entries (limit %d)", maxSeedEntries)
	}

	seen := map[string]struct{}{}
	out := make([]Movie, 0, len(doc.Movies))
	for i, e := range doc.Movies {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			return nil, fmt.Errorf("movie %d: title is required", i+1)
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("movie %d: duplicate title %q", i+1, title)
		}
		seen[title] = struct{}{}

		birth, err := parseDate(e.Director.Birth)
		if err != nil {
			return nil, fmt.Errorf("movie %q: director birth: %w", title, err)
		}
		death, err := parseDate(e.Director.Death)
		if err != nil {
			return nil, fmt.Errorf("movie %q: director death: %w", title, err)
		}

		out = append(out, Movie{
			Title:       title,
			Description: strings.TrimSpace(e.Description),
			Genre: Genre{
				Name:        strings.TrimSpace(e.Genre.Name),
				Description: strings.TrimSpace(e.Genre.Description),
			},
			Director: Director{
				Name:  strings.TrimSpace(e.Director.Name),
				Bio:   strings.TrimSpace(e.Director.Bio),
				Birth: birth,
				Death: death,
			},
			ImagePath: strings.TrimSpace(e.ImagePath),
			Featured:  e.Featured,
		})
	}
	return out, nil
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", v)
	}
	return &t, nil
}

// SeedMovies loads the YAML seed at path and inserts movies that are not in
// the catalog yet, keyed by title. Returns the number of movies inserted.
// The movie list cache is invalidated when anything was inserted.
func SeedMovies(ctx context.Context, repo MovieRepository, cache *CatalogCache, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	movies, err := ParseMovieSeed(data)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, m := range movies {
		_, err := repo.FindByTitle(ctx, m.Title)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrMovieNotFound) {
			return inserted, fmt.Errorf("check movie %q: %w", m.Title, err)
		}
		if _, err := repo.Create(ctx, m); err != nil {
			return inserted, fmt.Errorf("insert movie %q: %w", m.Title, err)
		}
		inserted++
	}

	if inserted > 0 && cache != nil {
		if err := cache.Invalidate(ctx, MovieListKey); err != nil {
			log.Printf("seed: cache invalidation failed: %v", err)
		}
	}
	return inserted, nil
}
