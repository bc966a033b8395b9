package api

import (
	"log"
	stdhttp "net/http"

	intconfig "restkit/internal/config"
	h "restkit/internal/http/handlers"
	"restkit/internal/http/middleware"
	"restkit/internal/resources"
	"restkit/internal/rest"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	secret := []byte(env.JWTSecret)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		auth := api.Group("/auth")
		auth.POST("/login", h.Login(secret))
		auth.POST("/register", h.Register(secret))

		contacts, err := resources.Contacts(intconfig.DB, env.Debug)
		if err != nil {
			log.Fatalf("contacts resource: %v", err)
		}
		mountResource(api.Group("/contacts"), contacts)

		lists, err := resources.Lists(intconfig.DB, env.Debug)
		if err != nil {
			log.Fatalf("lists resource: %v", err)
		}
		mountResource(api.Group("/lists", middleware.RequireAuth(secret)), lists)
	}

	h.SetRouter(r)
	return r
}

// mountResource registers every verb on both the collection and the item
// path. The dispatcher itself answers method-not-allowed for verbs the
// resource disables, with the permitted-verb list.
func mountResource(g *gin.RouterGroup, res *rest.Resource) {
	handler := res.Handler()
	for _, register := range []func(string, ...gin.HandlerFunc) gin.IRoutes{
		g.GET, g.POST, g.PUT, g.DELETE,
	} {
		register("", handler)
		register("/:id", handler)
	}
}
