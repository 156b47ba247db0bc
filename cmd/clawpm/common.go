package main

import (
	"database/sql"
	"fmt"

	"github.com/metalagman/clawpm/internal/backlog"
	"github.com/metalagman/clawpm/internal/catalog"
	"github.com/metalagman/clawpm/internal/config"
	"github.com/metalagman/clawpm/internal/db"
	"github.com/metalagman/clawpm/internal/reqlink"
	"github.com/metalagman/clawpm/internal/task"
)

// services bundles the wired service graph behind one database handle.
type services struct {
	db      *sql.DB
	tasks   *task.Service
	links   *reqlink.Service
	backlog *backlog.Service
	catalog *catalog.Store
}

func (s *services) Close() error {
	return s.db.Close()
}

func openServices() (*services, config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	sqldb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	tasks := task.NewService(task.NewStore(sqldb))
	return &services{
		db:      sqldb,
		tasks:   tasks,
		links:   reqlink.NewService(reqlink.NewStore(sqldb), tasks.Store()),
		backlog: backlog.NewService(backlog.NewStore(sqldb), tasks),
		catalog: catalog.NewStore(sqldb),
	}, cfg, nil
}
