package global

import (
	"context"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/opendraw/opendraw-sync/internal/sync/controller"
	"github.com/opendraw/opendraw-sync/internal/sync/dao"
	"github.com/opendraw/opendraw-sync/internal/sync/service"
	"github.com/opendraw/opendraw-sync/library/jwt"
	"github.com/opendraw/opendraw-sync/library/log"
	"github.com/opendraw/opendraw-sync/library/throttle"
)

var (
	SyncSvc *service.Service
	SyncCtl *controller.Controller
)

func SetupServices(ctx context.Context) {
	contentStore := dao.NewContentStore(ObjCli,
		gconfig.Shared.GetString("settings.minio.buckets.files"),
		gconfig.Shared.GetString("settings.minio.buckets.exports"),
	)
	if err := contentStore.Initialize(ctx); err != nil {
		// the metadata fallback still serves unmigrated files
		log.Logger.Warn("initialize object store", zap.Error(err))
	}

	cacheTTL := time.Duration(gconfig.Shared.GetInt("settings.cache.ttl_seconds")) * time.Second
	cache := dao.NewCache(CacheDB, cacheTTL)
	metadata := dao.NewMetadata(MetaDB)

	var err error
	if SyncSvc, err = service.NewService(metadata, contentStore, cache,
		log.Logger.Named("sync")); err != nil {
		log.Logger.Panic("new sync service", zap.Error(err))
	}

	connLimiter, err := throttle.NewIdentityLimiter(&throttle.IdentityLimiterCfg{
		PerSec:        gconfig.Shared.GetInt("settings.throttle.connect_per_sec"),
		Burst:         gconfig.Shared.GetInt("settings.throttle.connect_per_sec"),
		BlockDuration: time.Duration(gconfig.Shared.GetInt("settings.throttle.block_seconds")) * time.Second,
	})
	if err != nil {
		log.Logger.Panic("new connection limiter", zap.Error(err))
	}

	heavyLimiter, err := throttle.NewIdentityLimiter(&throttle.IdentityLimiterCfg{
		PerSec:        gconfig.Shared.GetInt("settings.throttle.heavy_per_sec"),
		Burst:         gconfig.Shared.GetInt("settings.throttle.heavy_per_sec"),
		BlockDuration: time.Duration(gconfig.Shared.GetInt("settings.throttle.block_seconds")) * time.Second,
	})
	if err != nil {
		log.Logger.Panic("new heavy operation limiter", zap.Error(err))
	}

	verifier, err := jwt.NewVerifier([]byte(gconfig.Shared.GetString("settings.secret")))
	if err != nil {
		log.Logger.Panic("new jwt verifier", zap.Error(err))
	}

	hub := controller.NewHub(uuid.NewString(), cache, log.Logger.Named("hub"))
	go func() {
		if err := hub.RunRelay(ctx, cache); err != nil {
			// standalone mode still works, broadcasts just stay local
			log.Logger.Warn("room relay stopped", zap.Error(err))
		}
	}()

	SyncCtl = controller.New(SyncSvc, hub, verifier, connLimiter, heavyLimiter,
		controller.Config{
			AllowedOrigins: gconfig.Shared.GetStringSlice("settings.ws.allowed_origins"),
		})
}
