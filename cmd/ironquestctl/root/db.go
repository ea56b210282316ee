package root

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ironquest/config"
	"ironquest/database"
	"ironquest/utils"
)

type env struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger
}

// openEnv loads configuration, connects to the server database and runs
// migrations. The returned cleanup closes the connection.
func openEnv() (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	zl, err := utils.InitLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, nil, err
	}
	database.SetDB(db)

	cleanup := func() {
		_ = database.CloseDB()
		_ = zl.Sync()
	}
	return &env{cfg: cfg, db: db, log: zl}, cleanup, nil
}
