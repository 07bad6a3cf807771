package core

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired. Repositories and
// services are injected so tests can run the full HTTP surface against
// fakes and miniredis.
func NewRouter(cfg Config, users UserRepository, movies MovieRepository,
	login *LoginService, tokens *TokenAuthenticator,
	cache *CatalogCache, metrics *MetricsService, db Pinger) *gin.Engine {

	startedAt := time.Now()
	r := gin.Default()

	r.Use(RequestIDMiddleware())
	r.Use(OriginRefererMiddleware(cfg))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to the filmforge movie API")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/users", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required,min=5,alphanum"`
			Password string `json:"password" binding:"required"`
			Name     string `json:"name"`
			Email    string `json:"email" binding:"required,email"`
			Birthday string `json:"birthday"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				"username (min 5, alphanumeric), password and a valid email are required")
			return
		}

		birthday, err := parseDate(req.Birthday)
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "birthday must be YYYY-MM-DD")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to process password")
			return
		}

		ctx := c.Request.Context()
		rec, err := users.Create(ctx, NewUser{
			Username:     req.Username,
			PasswordHash: hash,
			Name:         req.Name,
			Email:        req.Email,
			Birthday:     birthday,
		})
		if err != nil {
			if errors.Is(err, ErrUsernameTaken) {
				respondError(c, http.StatusBadRequest, "USERNAME_TAKEN", req.Username+" already exists")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
			return
		}

		if metrics != nil {
			if err := metrics.RecordRegistration(ctx); err != nil {
				log.Printf("metrics: record registration: %v", err)
			}
		}
		c.JSON(http.StatusCreated, gin.H{"user": rec.View()})
	})

	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
			return
		}

		ctx := c.Request.Context()
		result, err := login.Login(ctx, req.Username, req.Password)
		if err != nil {
			respondAuthFailure(c, err)
			return
		}

		if metrics != nil {
			if err := metrics.RecordLogin(ctx); err != nil {
				log.Printf("metrics: record login: %v", err)
			}
		}
		c.JSON(http.StatusOK, result)
	})

	authed := r.Group("")
	authed.Use(AuthMiddleware(tokens))
	{
		authed.GET("/movies", func(c *gin.Context) {
			ctx := c.Request.Context()
			if cache != nil {
				if payload, found, err := cache.Get(ctx, MovieListKey); err == nil && found {
					c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
					return
				} else if err != nil {
					log.Printf("movie cache read failed: %v", err)
				}
			}

			list, err := movies.List(ctx)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list movies")
				return
			}
			if list == nil {
				list = []Movie{}
			}

			payload, err := json.Marshal(list)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to encode movies")
				return
			}
			if cache != nil {
				if err := cache.Set(ctx, MovieListKey, string(payload)); err != nil {
					log.Printf("movie cache write failed: %v", err)
				}
			}
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		})

		authed.GET("/movies/:title", func(c *gin.Context) {
			m, err := movies.FindByTitle(c.Request.Context(), c.Param("title"))
			if err != nil {
				if errors.Is(err, ErrMovieNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load movie")
				return
			}
			c.JSON(http.StatusOK, m)
		})

		authed.GET("/genres/:name", func(c *gin.Context) {
			g, err := movies.GenreByName(c.Request.Context(), c.Param("name"))
			if err != nil {
				if errors.Is(err, ErrMovieNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "genre not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load genre")
				return
			}
			c.JSON(http.StatusOK, g)
		})

		authed.GET("/directors/:name", func(c *gin.Context) {
			d, err := movies.DirectorByName(c.Request.Context(), c.Param("name"))
			if err != nil {
				if errors.Is(err, ErrMovieNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "director not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load director")
				return
			}
			c.JSON(http.StatusOK, d)
		})

		authed.GET("/users/:username", func(c *gin.Context) {
			target, ok := resolveTargetUser(c, users)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": target.View()})
		})

		authed.PUT("/users/:username", func(c *gin.Context) {
			target, ok := resolveTargetUser(c, users)
			if !ok {
				return
			}

			var req struct {
				Username string `json:"username" binding:"omitempty,min=5,alphanum"`
				Password string `json:"password"`
				Name     string `json:"name"`
				Email    string `json:"email" binding:"omitempty,email"`
				Birthday string `json:"birthday"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid profile fields")
				return
			}

			upd := UserUpdate{
				Username: firstNonEmpty(req.Username, target.Username),
				Name:     firstNonEmpty(req.Name, target.Name),
				Email:    firstNonEmpty(req.Email, target.Email),
				Birthday: target.Birthday,
			}
			if req.Birthday != "" {
				birthday, err := parseDate(req.Birthday)
				if err != nil {
					respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "birthday must be YYYY-MM-DD")
					return
				}
				upd.Birthday = birthday
			}
			if req.Password != "" {
				hash, err := HashPassword(req.Password)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to process password")
					return
				}
				upd.PasswordHash = hash
			}

			rec, err := users.Update(c.Request.Context(), target.ID, upd)
			if err != nil {
				switch {
				case errors.Is(err, ErrUsernameTaken):
					respondError(c, http.StatusBadRequest, "USERNAME_TAKEN", req.Username+" already exists")
				case errors.Is(err, ErrUserNotFound):
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
				default:
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update user")
				}
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": rec.View()})
		})

		authed.DELETE("/users/:username", func(c *gin.Context) {
			target, ok := resolveTargetUser(c, users)
			if !ok {
				return
			}
			if err := users.Delete(c.Request.Context(), target.ID); err != nil {
				if errors.Is(err, ErrUserNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete user")
				return
			}
			c.Status(http.StatusNoContent)
		})

		authed.POST("/users/:username/movies/:movieID", favoriteHandler(users, movies, true))
		authed.DELETE("/users/:username/movies/:movieID", favoriteHandler(users, movies, false))

		admin := authed.Group("", AdminOnly())
		{
			admin.GET("/users", func(c *gin.Context) {
				page := intQuery(c, "page", 1)
				perPage := intQuery(c, "per_page", 50)
				items, total, err := users.List(c.Request.Context(), page, perPage)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list users")
					return
				}
				c.JSON(http.StatusOK, gin.H{"users": items, "total": total})
			})

			admin.GET("/status", func(c *gin.Context) {
				st := CollectSystemStatus(c.Request.Context(), db, cacheClient(cache), metrics, startedAt)
				c.JSON(http.StatusOK, st)
			})
		}
	}

	return r
}

// resolveTargetUser loads the user addressed by the :username parameter and
// enforces the access rule: the bound identity must be that user or an
// admin. Identity comparison is by store-assigned id.
func resolveTargetUser(c *gin.Context, users UserRepository) (*UserRecord, bool) {
	current, ok := CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return nil, false
	}

	target, err := users.FindByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load user")
		return nil, false
	}

	if current.ID != target.ID && current.Role != "admin" {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "cannot act on another user's account")
		return nil, false
	}
	return target, true
}

func favoriteHandler(users UserRepository, movies MovieRepository, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := resolveTargetUser(c, users)
		if !ok {
			return
		}

		movieID, err := strconv.ParseInt(strings.TrimSpace(c.Param("movieID")), 10, 64)
		if err != nil || movieID <= 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "movie id must be a positive integer")
			return
		}

		ctx := c.Request.Context()
		exists, err := movies.Exists(ctx, movieID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to check movie")
			return
		}
		if !exists {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
			return
		}

		if add {
			err = users.AddFavorite(ctx, target.ID, movieID)
		} else {
			err = users.RemoveFavorite(ctx, target.ID, movieID)
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update favorites")
			return
		}

		rec, err := users.FindByID(ctx, target.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to reload user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": rec.View()})
	}
}

func intQuery(c *gin.Context, name string, defaultVal int) int {
	if v := c.Query(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

// cacheClient unwraps the raw redis surface for status probes; nil-safe.
func cacheClient(cache *CatalogCache) CacheClient {
	if cache == nil {
		return nil
	}
	return cache.client
}
