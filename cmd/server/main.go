package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"garage-system/config"
	"garage-system/internal/database"
	"garage-system/internal/database/models"
	"garage-system/internal/gateway/handlers"
	"garage-system/internal/gateway/middleware"
	cataloghandler "garage-system/internal/services/catalog/handler"
	invoicehandler "garage-system/internal/services/invoice/handler"
	"garage-system/internal/services/notification"
	quotehandler "garage-system/internal/services/quote/handler"
	repairhandler "garage-system/internal/services/repair/handler"
	statshandler "garage-system/internal/services/stats/handler"
	userhandler "garage-system/internal/services/user/handler"
	"garage-system/internal/utils"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()
	utils.SetSecret(cfg.Server.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("failed to run migrations")
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	notifier := notification.NewDispatcher(db, redisClient)
	sequence := invoicehandler.NewRedisSequence(redisClient)

	users := userhandler.NewUserHandler(db, redisClient)
	catalog := cataloghandler.NewCatalogHandler(db, redisClient)
	quotes := quotehandler.NewQuoteHandler(db, redisClient, notifier)
	repairs := repairhandler.NewRepairHandler(db, redisClient, notifier)
	invoices := invoicehandler.NewInvoiceHandler(db, redisClient, sequence, notifier)
	stats := statshandler.NewStatsHandler(db)

	userHTTP := handlers.NewUserHTTPHandler(users)
	catalogHTTP := handlers.NewCatalogHTTPHandler(catalog)
	quoteHTTP := handlers.NewQuoteHTTPHandler(quotes)
	repairHTTP := handlers.NewRepairHTTPHandler(repairs)
	invoiceHTTP := handlers.NewInvoiceHTTPHandler(invoices)
	notificationHTTP := handlers.NewNotificationHTTPHandler(notifier)
	statsHTTP := handlers.NewStatsHTTPHandler(stats)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", userHTTP.Register)
			auth.POST("/login", userHTTP.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		managerOnly := middleware.RequireRoles(models.RoleManager)
		staff := middleware.RequireRoles(models.RoleManager, models.RoleMechanic)

		usersGroup := protected.Group("/users")
		{
			usersGroup.GET("/me", userHTTP.Me)
			usersGroup.GET("", managerOnly, userHTTP.ListUsers)
			usersGroup.GET("/:id", staff, userHTTP.GetUser)
			usersGroup.POST("", managerOnly, userHTTP.RegisterStaff)
			usersGroup.DELETE("/:id", managerOnly, userHTTP.DeactivateUser)
			usersGroup.PUT("/:id/rate", managerOnly, userHTTP.UpdateHourlyRate)
		}

		vehicles := protected.Group("/vehicles")
		{
			vehicles.POST("", userHTTP.AddVehicle)
			vehicles.GET("", userHTTP.ListVehicles)
		}

		catalogGroup := protected.Group("/catalog")
		{
			catalogGroup.GET("/services", catalogHTTP.ListServices)
			catalogGroup.GET("/services/:id", catalogHTTP.GetService)
			catalogGroup.POST("/services", managerOnly, catalogHTTP.CreateService)
			catalogGroup.GET("/packs", catalogHTTP.ListPacks)
			catalogGroup.GET("/packs/:id", catalogHTTP.GetPack)
			catalogGroup.POST("/packs", managerOnly, catalogHTTP.CreatePack)
		}

		quotesGroup := protected.Group("/quotes")
		{
			quotesGroup.POST("", quoteHTTP.CreateQuote)
			quotesGroup.GET("", quoteHTTP.ListQuotes)
			quotesGroup.GET("/:id", quoteHTTP.GetQuote)
			quotesGroup.POST("/:id/lines", managerOnly, quoteHTTP.AddAdhocLine)
			quotesGroup.POST("/:id/messages", quoteHTTP.AddMessage)
			quotesGroup.POST("/:id/mechanics", managerOnly, quoteHTTP.AssignMechanics)
			quotesGroup.POST("/:id/finalize", managerOnly, quoteHTTP.FinalizeQuote)
			quotesGroup.POST("/:id/accept", quoteHTTP.AcceptQuote)
			quotesGroup.POST("/:id/refuse", quoteHTTP.RefuseQuote)
			quotesGroup.POST("/:id/tasks/:taskId/toggle", quoteHTTP.ToggleTask)
		}

		availability := protected.Group("/availability")
		{
			availability.GET("/unavailable-dates", quoteHTTP.GetUnavailableDates)
			availability.GET("/mechanics", managerOnly, quoteHTTP.GetAvailableMechanics)
		}

		repairsGroup := protected.Group("/repairs")
		{
			repairsGroup.GET("", repairHTTP.ListRepairs)
			repairsGroup.GET("/:id", repairHTTP.GetRepair)
			repairsGroup.PUT("/:id/status", staff, repairHTTP.UpdateStatus)
			repairsGroup.POST("/:id/steps", staff, repairHTTP.AddStep)
			repairsGroup.PUT("/:id/steps/:stepId/status", staff, repairHTTP.UpdateStepStatus)
			repairsGroup.POST("/:id/steps/:stepId/comments", repairHTTP.AddStepComment)
			repairsGroup.POST("/:id/photos", staff, repairHTTP.AddPhoto)
		}

		invoicesGroup := protected.Group("/invoices")
		{
			invoicesGroup.POST("", managerOnly, invoiceHTTP.CreateInvoice)
			invoicesGroup.GET("", invoiceHTTP.ListInvoices)
			invoicesGroup.GET("/:id", invoiceHTTP.GetInvoice)
			invoicesGroup.POST("/:id/issue", managerOnly, invoiceHTTP.IssueInvoice)
			invoicesGroup.POST("/:id/cancel", managerOnly, invoiceHTTP.CancelInvoice)
			invoicesGroup.POST("/:id/payments", managerOnly, invoiceHTTP.AddPayment)
		}

		statsGroup := protected.Group("/stats")
		statsGroup.Use(managerOnly)
		{
			statsGroup.GET("/revenue", statsHTTP.Revenue)
			statsGroup.GET("/revenue/by-kind", statsHTTP.RevenueByKind)
			statsGroup.GET("/quotes", statsHTTP.QuoteActivity)
		}

		notificationsGroup := protected.Group("/notifications")
		{
			notificationsGroup.GET("", notificationHTTP.ListNotifications)
			notificationsGroup.PUT("/:id/read", notificationHTTP.MarkRead)
		}
	}

	addr := ":" + cfg.Server.Port
	logrus.WithField("addr", addr).Info("starting server")
	if err := r.Run(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
