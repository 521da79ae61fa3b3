package main

import (
	"net/http"
	"os"

	"gamelobby/backend/internal/auth"
	"gamelobby/backend/internal/config"
	"gamelobby/backend/internal/database"
	"gamelobby/backend/internal/handler"
	"gamelobby/backend/internal/hub"
	"gamelobby/backend/internal/lobby"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadConfig()
}

// @title           Game Lobby API
// @version         1.0
// @description     Lobby, room and chat backend with realtime updates over SSE.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	database.Connect(config.AppConfig.DatabaseURL)

	eventHub := hub.NewHub()
	store := lobby.NewGormStore(database.DB)
	lobbySvc := lobby.NewService(store)

	userHandler := handler.NewUserHandler(database.DB)
	lobbyHandler := handler.NewLobbyHandler(lobbySvc, eventHub, handler.NewUserSource(database.DB))
	roomHandler := handler.NewRoomHandler(handler.NewRoomStore(database.DB), eventHub)

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
			authRoutes.POST("/register", userHandler.RegisterUser)
			authRoutes.POST("/login", userHandler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", userHandler.GetMe)
		}

		// Lobby routes
		lobbyRoutes := apiV1.Group("/lobbies")
		{
			// Public roster lookup so a prospective member can preview a lobby
			lobbyRoutes.GET("/code/:code", auth.OptionalAuthMiddleware(), lobbyHandler.GetLobbyByCode)

			protected := lobbyRoutes.Group("")
			protected.Use(auth.AuthMiddleware())
			{
				protected.POST("", lobbyHandler.CreateLobby)
				protected.POST("/join", lobbyHandler.JoinLobby)
				protected.GET("/:id", lobbyHandler.GetLobbyByID)
				protected.POST("/:id/leave", lobbyHandler.LeaveLobby)
				protected.POST("/:id/start", lobbyHandler.StartGame)
				protected.GET("/:id/events", lobbyHandler.LobbyEvents)
			}
		}

		// Room routes (protected)
		roomRoutes := apiV1.Group("/rooms")
		roomRoutes.Use(auth.AuthMiddleware())
		{
			roomRoutes.GET("/:id", roomHandler.GetRoom)
			roomRoutes.PATCH("/:id/status", roomHandler.UpdateRoomStatus)
			roomRoutes.GET("/:id/messages", roomHandler.ListMessages)
			roomRoutes.POST("/:id/messages", roomHandler.SendMessage)
			roomRoutes.GET("/:id/events", roomHandler.RoomEvents)
		}
	}

	addr := config.AppConfig.ListenAddr
	log.Info().Str("addr", addr).Msg("server started")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
