package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/service/assistant"
	"github.com/legalconnect/legalconnect-server/service/community"
	"github.com/legalconnect/legalconnect-server/service/consultation"
	"github.com/legalconnect/legalconnect-server/service/dashboard"
	"github.com/legalconnect/legalconnect-server/service/lawyer"
	"github.com/legalconnect/legalconnect-server/service/notification"
	"github.com/legalconnect/legalconnect-server/service/resource"
	"github.com/legalconnect/legalconnect-server/service/user"
	"github.com/legalconnect/legalconnect-server/service/ws"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	hub := ws.NewHub()
	go hub.Run()

	wsHandler := ws.NewHandler(hub)
	wsHandler.RegisterRoutes(router)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	lawyerHandler := lawyer.NewHandler(s.db)
	lawyerHandler.RegisterRoutes(subrouter)

	// Realtime forum events stay off in production.
	var notifier community.Notifier = hub
	if os.Getenv("ENV") == "production" {
		notifier = community.NoopNotifier{}
	}

	communityHandler := community.NewTopicHandler(s.db, notifier)
	communityHandler.RegisterRoutes(subrouter)

	pushService := notification.NewService(s.db)

	consultationHandler := consultation.NewHandler(consultation.NewEngine(s.db), pushService)
	consultationHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewHandler(pushService)
	notificationHandler.RegisterRoutes(subrouter)

	resourceHandler := resource.NewHandler(s.db)
	resourceHandler.RegisterRoutes(subrouter)

	assistantHandler := assistant.NewHandler()
	assistantHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	allowedOrigins := handlers.AllowedOrigins([]string{"*"})
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = handlers.AllowedOrigins([]string{origins})
	}
	corsRouter := handlers.CORS(
		allowedOrigins,
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(router)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, handlers.LoggingHandler(os.Stdout, corsRouter))
}
