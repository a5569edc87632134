package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/config"
	"github.com/iliyamo/inventory-admin/internal/database"
	"github.com/iliyamo/inventory-admin/internal/handler"
	"github.com/iliyamo/inventory-admin/internal/logging"
	"github.com/iliyamo/inventory-admin/internal/memstore"
	"github.com/iliyamo/inventory-admin/internal/middleware"
	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/queue"
	"github.com/iliyamo/inventory-admin/internal/repository"
	"github.com/iliyamo/inventory-admin/internal/router"
	"github.com/iliyamo/inventory-admin/internal/service"
	"github.com/iliyamo/inventory-admin/internal/utils"
)

// stores groups the three directories the service runs on.
type stores struct {
	users  service.UserStore
	roles  service.RoleStore
	tokens repository.TokenBackend
	db     handler.Pinger
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL)
	if err != nil {
		logger.WithError(err).Fatal("token issuer")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable: revocation cache, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	st, closeStore := openStores(ctx, cfg, logger)
	defer closeStore()

	// positive revocations are remembered for one token lifetime
	tokens := repository.NewRevokedCache(st.tokens, rdb, cfg.RevokedCachePrefix, issuer.TTL(), logger)

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.AuditQueue, 0, logger)
		pub.Start()
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pub.Close(flushCtx)
		}()
		events = pub

		if cfg.AuditConsumer {
			go func() {
				err := queue.StartAuditConsumer(ctx, queue.ConsumerConfig{URL: cfg.AMQPURL, Queue: cfg.AuditQueue, LogPath: cfg.AuditLog}, logger)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.WithError(err).Error("audit consumer stopped")
				}
			}()
		}
	} else {
		logger.Info("AMQP_URL not set: auth audit events disabled")
	}

	opts := service.Options{
		BcryptCost:             cfg.BcryptCost,
		RevokeOnPasswordChange: cfg.RevokeOnPasswordChange,
		RevokeOnDeactivate:     cfg.RevokeOnDeactivate,
	}
	if cfg.EnforcePermissions {
		opts.RestrictedAccess = model.AdminAccess()
	}
	svc := service.NewAuthService(st.users, st.roles, tokens, issuer, events, opts, logger)
	gate := service.NewGate(issuer, tokens, st.users, cfg.LookupTimeout, logger)

	adminRole, err := bootstrapRoles(ctx, svc)
	if err != nil {
		logger.WithError(err).Fatal("bootstrap roles")
	}
	if err := provisionAdmin(ctx, svc, cfg, adminRole, logger); err != nil {
		logger.WithError(err).Fatal("provision admin")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))

	deps := router.Deps{
		Gate:               gate,
		Redis:              rdb,
		RateLimit:          config.LoadRateLimitConfig(),
		Cache:              config.LoadCacheConfig(),
		EnforcePermissions: cfg.EnforcePermissions,
		Log:                logger,
	}
	router.RegisterRoutes(e, st.db)
	router.RegisterAuth(e, handler.NewAuthHandler(svc, logger), deps)
	router.RegisterRoles(e, handler.NewRoleHandler(svc, logger), deps)

	go func() {
		addr := ":" + cfg.Port
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.Storage}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

func openStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (stores, func()) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("APP_STORAGE=memory: accounts and tokens are lost on restart")
		return stores{users: memstore.NewUsers(), roles: memstore.NewRoles(), tokens: memstore.NewTokens()}, func() {}
	}

	db, err := database.Open(database.Params{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}
	return stores{
		users:  repository.NewUserRepo(db),
		roles:  repository.NewRoleRepo(db),
		tokens: repository.NewTokenRepo(db),
		db:     db,
	}, func() { _ = db.Close() }
}

// bootstrapRoles seeds an empty directory with an admin role and a member
// role that public registration may pick.
func bootstrapRoles(ctx context.Context, svc *service.AuthService) (uint64, error) {
	roles, err := svc.ListRoles(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range roles {
		if r.Name == "admin" {
			return r.ID, nil
		}
	}
	if len(roles) > 0 {
		return 0, nil
	}
	admin, err := svc.CreateRole(ctx, service.RoleInput{
		Name:   "admin",
		Access: model.NewAccessSet(append(model.AdminAccess(), model.PermRolesRead)...),
	})
	if err != nil {
		return 0, err
	}
	_, err = svc.CreateRole(ctx, service.RoleInput{Name: "member", Access: model.NewAccessSet(model.PermRolesRead)})
	return admin.ID, err
}

// provisionAdmin creates the configured admin account once.
func provisionAdmin(ctx context.Context, svc *service.AuthService, cfg config.Config, roleID uint64, log logrus.FieldLogger) error {
	if cfg.AdminEmail == "" || roleID == 0 {
		return nil
	}
	_, err := svc.Provision(ctx, service.RegisterInput{
		Name:      "Administrator",
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		RoleID:    roleID,
		Telephone: "-",
	})
	if service.KindOf(err) == service.KindConflict {
		return nil
	}
	if err == nil {
		log.WithField("email", cfg.AdminEmail).Info("admin account provisioned")
	}
	return err
}
