package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/ktarasov/placehub/internal/handlers"
	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	"github.com/ktarasov/placehub/internal/models"
)

type Deps struct {
	Guard         *authmw.Guard
	AuthHandler   *handlers.AuthHandler
	PlaceHandler  *handlers.PlaceHandler
	ReviewHandler *handlers.ReviewHandler
	RouteHandler  *handlers.RouteHandler
	UserHandler   *handlers.UserHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", d.AuthHandler.Register)
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/refresh", d.AuthHandler.Refresh)
	v1.GET("/auth/me", d.AuthHandler.Me, d.Guard.Authenticate)

	v1.GET("/search", d.SearchHandler.Search)

	places := v1.Group("/places")
	places.GET("", d.PlaceHandler.GetPlaces)
	places.GET("/:id", d.PlaceHandler.GetPlace)
	places.GET("/:id/nearest", d.PlaceHandler.Nearest)
	places.GET("/:id/images", d.PlaceHandler.GetPlaceImages)
	places.GET("/:id/reviews", d.ReviewHandler.GetPlaceReviews)
	places.POST("", d.PlaceHandler.CreatePlace, d.Guard.Authenticate)
	places.PATCH("/:id", d.PlaceHandler.PatchPlace, d.Guard.Authenticate)
	places.DELETE("/:id", d.PlaceHandler.DeletePlace, d.Guard.Authenticate)
	places.POST("/:id/images", d.PlaceHandler.AddPlaceImage, d.Guard.Authenticate)
	places.POST("/:id/reviews", d.ReviewHandler.CreateReview, d.Guard.Authenticate)

	reviews := v1.Group("/reviews", d.Guard.Authenticate)
	reviews.PATCH("/:id", d.ReviewHandler.PatchReview)
	reviews.DELETE("/:id", d.ReviewHandler.DeleteReview)

	routes := v1.Group("/routes")
	routes.GET("", d.RouteHandler.GetRoutes)
	routes.GET("/:id", d.RouteHandler.GetRoute)
	routes.POST("", d.RouteHandler.CreateRoute, d.Guard.Authenticate)
	routes.DELETE("/:id", d.RouteHandler.DeleteRoute, d.Guard.Authenticate)
	routes.POST("/:id/places/:placeId", d.RouteHandler.SwitchPlace, d.Guard.Authenticate)

	users := v1.Group("/users")
	users.GET("/:id", d.UserHandler.GetUser)
	users.GET("/:id/places", d.UserHandler.GetUserPlaces)
	users.GET("/:id/reviews", d.ReviewHandler.GetUserReviews)

	moderation := users.Group("/:id/roles",
		d.Guard.Authenticate,
		d.Guard.RequireRoles(models.RoleModerator),
	)
	moderation.POST("", d.UserHandler.GiveRole)
	moderation.DELETE("", d.UserHandler.RemoveRole)
}
