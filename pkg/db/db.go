// Package db 提供 GORM 初始化、连接池配置与事务助手
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wyfcoding/primecredit/pkg/contextx"
	pkglogger "github.com/wyfcoding/primecredit/pkg/logger"
	"github.com/wyfcoding/primecredit/pkg/metrics"
)

// ErrUnavailable 存储层故障（连接、超时、事务提交失败等），可重试
var ErrUnavailable = errors.New("storage unavailable")

// WrapError 将底层驱动错误标记为存储层故障；nil 原样返回
// 仓储层只对非领域映射的错误路径调用
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Config 数据库配置
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
	// 可为 nil，非 nil 时上报查询耗时
	Metrics *metrics.Metrics
}

// DB 数据库实例包装
type DB struct {
	*gorm.DB
	config Config
}

// Init 初始化数据库连接
func Init(cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond, cfg.Metrics),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pkglogger.Info(context.Background(), "database connected", "driver", cfg.Driver)
	return &DB{DB: gdb, config: cfg}, nil
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx 在事务中执行函数，事务句柄通过 context 传给仓储层，自动回滚/提交
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := d.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return WrapError(tx.Error)
	}

	txCtx := contextx.WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return WrapError(err)
	}
	return nil
}

// GormLogger GORM 日志记录器实现，接入统一日志与查询耗时指标
type GormLogger struct {
	enabled            bool
	slowQueryThreshold time.Duration
	metrics            *metrics.Metrics
}

// NewGormLogger 创建 GORM 日志记录器
func NewGormLogger(enabled bool, slowQueryThreshold time.Duration, m *metrics.Metrics) *GormLogger {
	return &GormLogger{enabled: enabled, slowQueryThreshold: slowQueryThreshold, metrics: m}
}

// LogMode 设置日志模式
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return l
}

// Info 记录信息日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled {
		pkglogger.Info(ctx, msg, "data", data)
	}
}

// Warn 记录警告日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	pkglogger.Warn(ctx, msg, "data", data)
}

// Error 记录错误日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	pkglogger.Error(ctx, msg, "data", data)
}

// Trace 记录 SQL 执行日志并上报查询耗时
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	if l.metrics != nil {
		l.metrics.DBQueryDuration.Observe(elapsed.Seconds())
	}
	if !l.enabled {
		return
	}

	sqlStr, rows := fc()
	args := []interface{}{"duration", elapsed, "rows", rows, "sql", sqlStr}

	switch {
	case err != nil:
		args = append(args, "error", err)
		pkglogger.Error(ctx, "sql execution failed", args...)
	case elapsed > l.slowQueryThreshold:
		pkglogger.Warn(ctx, "slow query detected", args...)
	default:
		pkglogger.Debug(ctx, "sql executed", args...)
	}
}
