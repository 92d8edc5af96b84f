// Package web Web API 服务
package web

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/service"
	pkglogger "github.com/smysle/gift-shuffle-go/pkg/logger"
)

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	svc       *service.Services
	db        *gorm.DB
	startTime time.Time
}

// New 创建 Web 服务器
func New(cfg *config.APIConfig, db *gorm.DB, svc *service.Services) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(ErrorResponse{
				Error: err.Error(),
				Code:  service.KindInternal.String(),
			})
		},
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + actorHeader,
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		svc:       svc,
		db:        db,
		startTime: time.Now(),
	}

	// 注册路由
	server.registerRoutes()

	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	// 健康检查
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)

	// 详细状态
	s.app.Get("/status", s.detailedStatus)

	// API v1
	v1 := s.app.Group("/api/v1", actorMiddleware)

	// 展示端轮询，只读
	v1.Get("/sessions/:id/status", s.getStatus)
	v1.Get("/sessions/:id/latest-winner", s.getLatestWinner)
	v1.Get("/sessions/:id/winners", s.getWinners)
	v1.Get("/rounds/:id/gifts", s.getRoundGifts)

	// 场次
	v1.Post("/sessions", s.startSession)
	v1.Get("/sessions", s.listSessions)
	v1.Get("/sessions/:id", s.getSession)
	v1.Post("/sessions/:id/complete", s.completeSession)
	v1.Post("/sessions/:id/rounds/ensure", s.ensureRound)
	v1.Put("/sessions/:id/auto-advance", s.setAutoAdvance)

	// 抽奖与指定中奖
	v1.Post("/sessions/:id/draw", s.draw)
	v1.Post("/sessions/:id/boosts", s.createBoost)
	v1.Get("/sessions/:id/boosts", s.listBoosts)
	v1.Delete("/boosts/:id", s.removeBoost)

	// 奖品与奖品配置
	v1.Post("/gifts", s.createGift)
	v1.Get("/gifts", s.listGifts)
	v1.Post("/breakdowns", s.createBreakdown)
	v1.Get("/breakdowns/:id", s.getBreakdown)
	v1.Put("/breakdowns/:id/active", s.setBreakdownActive)
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status   string         `json:"status"`
	Uptime   string         `json:"uptime"`
	System   SystemInfo     `json:"system"`
	Database DatabaseStatus `json:"database"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected      bool   `json:"connected"`
	Driver         string `json:"driver"`
	ActiveSessions int    `json:"active_sessions"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	// 系统信息
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// 数据库状态
	dbStatus := DatabaseStatus{}
	if s.db != nil {
		dbStatus.Driver = s.db.Dialector.Name()
		sqlDB, err := s.db.DB()
		if err == nil && sqlDB.PingContext(c.UserContext()) == nil {
			dbStatus.Connected = true
			if active, err := s.svc.Sessions.ListActive(); err == nil {
				dbStatus.ActiveSessions = len(active)
			}
		}
	}

	return c.JSON(StatusResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Database: dbStatus,
	})
}
