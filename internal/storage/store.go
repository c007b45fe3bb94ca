package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"retiree-match/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config 数据库配置。Driver 为空时使用 sqlite，DSN 即文件路径。
type Config struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// Store 封装数据库访问，实现匹配引擎所需的全部仓储接口。
type Store struct {
	db *gorm.DB
}

// NewStore 打开数据库并自动迁移数据表。
func NewStore(cfg Config) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName(cfg), err)
	}

	if driverName(cfg) == "sqlite" {
		// sqlite 单连接写入，避免并发批次间的 database is locked。
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Candidate{},
		&model.JobPosting{},
		&model.Cooperation{},
		&model.MatchingRun{},
		&model.Match{},
		&model.ProficiencyLevel{},
		&model.ZipCoordinate{},
		&model.Notification{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	return &Store{db: db}, nil
}

func driverName(cfg Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if d == "" {
		return "sqlite"
	}
	return d
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch driverName(cfg) {
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			path = "data/matching.db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		return sqlite.Open(path), nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql dsn is required")
		}
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// notFound 将 gorm 的未找到错误统一映射为 sql.ErrNoRows。
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sql.ErrNoRows
	}
	return err
}
