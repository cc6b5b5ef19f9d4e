// Package server assembles the gin engine from the configured modules.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"pagetags/admin"
	"pagetags/api"
	"pagetags/apperrors"
	"pagetags/auth"
	"pagetags/cache"
	"pagetags/config"
	"pagetags/store"
	"pagetags/views"
	"pagetags/web"
)

// NewRouter wires the web UI, admin panel and API onto one engine.
// pageCache may be nil.
func NewRouter(conf *config.AppConfig, s *store.Store, pageCache cache.Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(cors.New(corsConfig(conf.CORS)))

	sessionStore := cookie.NewStore([]byte(conf.Session.Secret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   conf.Session.MaxAge,
		HttpOnly: true,
		Secure:   conf.Server.Mode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(conf.Session.Name, sessionStore))
	router.Use(cache.InvalidateMiddleware(pageCache))

	router.SetHTMLTemplate(views.Templates())

	issuer := auth.NewTokenIssuer(conf.JWT.Secret, time.Duration(conf.JWT.ExpireHours)*time.Hour)

	api.NewAPIModule(s, issuer, conf.Pagination).RegisterRoutes(router)
	web.NewWebModule(s, conf.Pagination, pageCache, conf.Cache.TTL).RegisterRoutes(router)
	admin.NewAdminModule(s, conf.Pagination.AdminPerPage).RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		if err := s.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, apperrors.NotFound("no such endpoint"))
			return
		}
		c.HTML(http.StatusNotFound, "404.html", gin.H{})
	})

	return router
}

// corsConfig allows every origin, without credentials, when the list is
// empty or contains "*".
func corsConfig(conf config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range conf.AllowOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(conf.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
		return c
	}

	c.AllowOrigins = conf.AllowOrigins
	c.AllowCredentials = true
	return c
}
