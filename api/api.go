// Package api serves the token authenticated JSON interface under /api/v1.
package api

import (
	"github.com/gin-gonic/gin"

	"pagetags/auth"
	"pagetags/config"
	"pagetags/store"
)

type APIModule struct {
	store  *store.Store
	issuer *auth.TokenIssuer
	conf   config.PaginationConfig
}

func NewAPIModule(s *store.Store, issuer *auth.TokenIssuer, conf config.PaginationConfig) *APIModule {
	return &APIModule{
		store:  s,
		issuer: issuer,
		conf:   conf,
	}
}

func (a *APIModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/docs", a.docs)

	v1 := router.Group("/api/v1")
	v1.POST("/auth", a.authenticate)

	protected := v1.Group("")
	protected.Use(TokenAuth(a.issuer, a.store))
	{
		protected.GET("/tags", a.listTags)
		protected.GET("/tag/:tag", a.tagPosts)
		protected.GET("/categories", a.listCategories)
		protected.GET("/category/:category", a.categoryPosts)
		protected.GET("/url", a.urlPosts)
		protected.GET("/posts", a.listPosts)
		protected.POST("/posts", a.createPost)
		protected.GET("/post/:id", a.getPost)
		protected.PUT("/post/:id", a.updatePost)
		protected.DELETE("/post/:id", a.deletePost)
	}
}
