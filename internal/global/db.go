// Package global wires shared clients and services at startup.
package global

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"

	"github.com/opendraw/opendraw-sync/library/db/postgres"
	redisdb "github.com/opendraw/opendraw-sync/library/db/redis"
	"github.com/opendraw/opendraw-sync/library/log"
)

var (
	MetaDB  *postgres.DB
	CacheDB *redisdb.DB
	ObjCli  *minio.Client
)

func SetupDB(ctx context.Context) {
	setupPostgres(ctx)
	setupRedis(ctx)
	setupMinio(ctx)
}

func setupPostgres(ctx context.Context) {
	defer log.Logger.Info("connected postgres")
	var err error
	if MetaDB, err = postgres.NewDB(ctx, postgres.DialInfo{
		Addr:   gconfig.Shared.GetString("settings.db.postgres.addr"),
		DBName: gconfig.Shared.GetString("settings.db.postgres.db"),
		User:   gconfig.Shared.GetString("settings.db.postgres.user"),
		Pwd:    gconfig.Shared.GetString("settings.db.postgres.pwd"),
	}); err != nil {
		log.Logger.Panic("connect to postgres", zap.Error(err))
	}
}

func setupRedis(ctx context.Context) {
	defer log.Logger.Info("connected redis")
	var err error
	if CacheDB, err = redisdb.NewDB(ctx, &goredis.Options{
		Addr: gconfig.Shared.GetString("settings.redis.addr"),
		DB:   gconfig.Shared.GetInt("settings.redis.db"),
	}); err != nil {
		log.Logger.Panic("connect to redis", zap.Error(err))
	}
}

func setupMinio(ctx context.Context) {
	defer log.Logger.Info("connected object store")
	var err error
	if ObjCli, err = minio.New(
		gconfig.Shared.GetString("settings.minio.endpoint"),
		&minio.Options{
			Creds: credentials.NewStaticV4(
				gconfig.Shared.GetString("settings.minio.access_key"),
				gconfig.Shared.GetString("settings.minio.secret_key"),
				"",
			),
			Secure: gconfig.Shared.GetBool("settings.minio.use_ssl"),
		},
	); err != nil {
		log.Logger.Panic("create minio client", zap.Error(err))
	}
}
