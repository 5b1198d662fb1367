package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"linkbio/internal/config"
	"linkbio/internal/docstore"
	"linkbio/internal/inference"
	"linkbio/internal/middleware"
	"linkbio/internal/pipeline"
	"linkbio/internal/repository"
	"linkbio/internal/service"
	"linkbio/internal/storage"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	uploads  *service.UploadService
	widgets  *service.WidgetService
	persona  *service.PersonaService
	docs     *docstore.Store
	users    *repository.UserRepository
	sessions *repository.SessionRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	docs := docstore.New(db, cache, log)
	pipe := pipeline.New(store, docs, log)

	authSvc := service.NewAuthService(userRepo, sessionRepo, cfg, log)
	uploadSvc := service.NewUploadService(pipe, assetRepo, cache, cfg, log)
	widgetSvc := service.NewWidgetService(docs, assetRepo, uploadSvc, log)
	personaSvc := service.NewPersonaService(docs, inference.New(cfg.Inference, log), store, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     authSvc,
		uploads:  uploadSvc,
		widgets:  widgetSvc,
		persona:  personaSvc,
		docs:     docs,
		users:    userRepo,
		sessions: sessionRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	authed := middleware.Auth(h.cfg, h.users, h.sessions)

	me := v1.Group("/auth")
	me.Use(authed)
	me.GET("/me", h.Me)

	// Public page reads and live updates for viewers.
	v1.GET("/pages/:ownerId/:widget", h.ListWidgetDocs)
	v1.GET("/pages/:ownerId/:widget/style", h.GetStyle)
	v1.GET("/subscribe", h.Subscribe)

	// Guestbook is writable by visitors.
	v1.POST("/guestbook/:ownerId/entries", h.AddGuestbookEntry)
	v1.POST("/guestbook/:ownerId/entries/:entryId/like", h.LikeGuestbookEntry)

	owner := v1.Group("")
	owner.Use(authed)
	owner.PUT("/widgets/:widget/style", h.SaveStyle)
	owner.POST("/uploads/:slot", h.Upload)
	owner.POST("/diary", h.CreateDiaryEntry)
	owner.DELETE("/diary/:entryId", h.DeleteDiaryEntry)
	owner.POST("/calendar", h.CreateCalendarEntry)
	owner.DELETE("/calendar/:entryId", h.DeleteCalendarEntry)
	owner.POST("/links", h.CreateLink)
	owner.DELETE("/links/:linkId", h.DeleteLink)
	owner.POST("/persona", h.CreatePersonaEntry)
	owner.POST("/persona/:entryId/generate", h.GeneratePersonaImage)
}
