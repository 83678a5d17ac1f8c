package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/billing"
	"github.com/personahub/persona-backend/internal/service"
	"github.com/personahub/persona-backend/internal/service/admin"
	"github.com/personahub/persona-backend/internal/service/catalog"
	"github.com/personahub/persona-backend/internal/service/chat"
	"github.com/personahub/persona-backend/internal/service/lookup"
	"github.com/personahub/persona-backend/internal/service/quota"
	"github.com/personahub/persona-backend/internal/types"
)

// UserGetter is the minimal user lookup the API layer needs directly.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

// Deduper deduplicates webhook deliveries. Implemented by the Redis client.
type Deduper interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Server holds API dependencies.
type Server struct {
	auth          *service.AuthService
	catalog       *catalog.Service
	chat          *chat.Service
	quota         *quota.Guard
	lookup        *lookup.Service
	admin         *admin.Service
	billing       *billing.Client
	users         UserGetter
	dedup         Deduper
	webhookSecret string
	logger        *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(
	authService *service.AuthService,
	catalogService *catalog.Service,
	chatService *chat.Service,
	quotaGuard *quota.Guard,
	lookupService *lookup.Service,
	adminService *admin.Service,
	billingClient *billing.Client,
	users UserGetter,
	dedup Deduper,
	webhookSecret string,
	logger *logrus.Logger,
) *Server {
	return &Server{
		auth:          authService,
		catalog:       catalogService,
		chat:          chatService,
		quota:         quotaGuard,
		lookup:        lookupService,
		admin:         adminService,
		billing:       billingClient,
		users:         users,
		dedup:         dedup,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}
