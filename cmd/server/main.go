package main

import (
	"fmt"
	"log"
	"net/http"

	"partyplanner/backend/internal/auth"
	"partyplanner/backend/internal/config"
	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/handler"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "partyplanner/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Party Planner API
// @version         1.0
// @description     This is the API for the party planner service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database and the token blacklist store
	database.Connect(config.AppConfig.DatabaseURL)
	database.ConnectRedis(config.AppConfig.RedisURL)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/logout", auth.AuthMiddleware(), handler.LogoutUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", handler.GetMe)
		}

		// Party routes; browsing and applying work for guests too
		partyRoutes := apiV1.Group("/parties")
		{
			partyRoutes.GET("", auth.OptionalAuthMiddleware(), handler.SearchParties)
			partyRoutes.POST("/join", auth.OptionalAuthMiddleware(), handler.JoinByCode) // Must be before /:id
			partyRoutes.GET("/:id", auth.OptionalAuthMiddleware(), handler.GetPartyByID)
			partyRoutes.GET("/:id/slots", handler.ListSlots)
			partyRoutes.GET("/:id/members", handler.ListMembers)
			partyRoutes.POST("/:id/apply", auth.OptionalAuthMiddleware(), handler.ApplyToParty)

			// Host-side party management
			partyRoutes.POST("", auth.AuthMiddleware(), handler.CreateParty)
			partyRoutes.PUT("/:id", auth.AuthMiddleware(), handler.UpdateParty)
			partyRoutes.POST("/:id/invite-code", auth.AuthMiddleware(), handler.RegenerateInviteCode)
			partyRoutes.POST("/:id/slots", auth.AuthMiddleware(), handler.CreateSlot)
			partyRoutes.POST("/:id/members/:memberID/state", auth.AuthMiddleware(), handler.UpdateMemberState)
			partyRoutes.DELETE("/:id/members/:memberID", auth.AuthMiddleware(), handler.KickMember)

			// Chat
			partyRoutes.GET("/:id/messages", auth.AuthMiddleware(), handler.GetChatHistory)
			partyRoutes.POST("/:id/messages", auth.AuthMiddleware(), handler.PostChatMessage)
			partyRoutes.GET("/:id/ws", auth.WSAuthMiddleware(), handler.PartyWebSocket)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			adminRoutes.DELETE("/parties/:id", handler.DeleteParty)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.ServerAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.ServerAddr))
}
