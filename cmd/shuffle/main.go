// Gift Shuffle - 现场抽奖轮次与奖品分配服务
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/smysle/gift-shuffle-go/internal/audit"
	"github.com/smysle/gift-shuffle-go/internal/config"
	"github.com/smysle/gift-shuffle-go/internal/database"
	"github.com/smysle/gift-shuffle-go/internal/scheduler"
	"github.com/smysle/gift-shuffle-go/internal/service"
	"github.com/smysle/gift-shuffle-go/internal/web"
	"github.com/smysle/gift-shuffle-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(logger.Options{Debug: *debug})
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	if *debug {
		cfg.Debug = true
	}

	// 初始化日志
	logger.Init(logger.Options{
		Debug:    cfg.Debug,
		Dir:      cfg.LogDir,
		Location: cfg.Location(),
	})
	logger.Info().Str("name", cfg.Name).Msg("🎁 Gift Shuffle 启动中...")

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close()
	logger.Info().Msg("✅ 数据库连接成功")

	// 组装抽奖引擎
	svc := service.New(database.GetDB(), cfg, newAuditSink(cfg.Audit))
	logger.Info().Msg("✅ 抽奖引擎初始化完成")

	// 初始化定时任务调度器
	sched := scheduler.New(cfg, svc.Selector, svc.Sessions)
	sched.Start()
	defer sched.Stop()
	logger.Info().Msg("✅ 定时任务调度器启动")

	// 初始化 Web API 服务
	webServer := web.New(&cfg.API, database.GetDB(), svc)
	go func() {
		if err := webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Web API 服务启动失败")
		}
	}()
	defer webServer.Stop()

	// 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("🚀 Gift Shuffle 启动成功!")
	logger.Info().Msg("按 Ctrl+C 停止...")

	// 等待退出信号
	<-quit

	logger.Info().Msg("正在关闭服务...")
}

// newAuditSink 按配置组装审计接收方，日志始终开启
func newAuditSink(cfg config.AuditConfig) audit.Sink {
	sinks := audit.Multi{audit.LogSink{}}

	if cfg.WebhookURL != "" {
		sinks = append(sinks, audit.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret))
		logger.Info().Str("url", cfg.WebhookURL).Msg("已启用审计回调")
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := audit.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram 审计推送不可用")
		} else {
			sinks = append(sinks, tg)
			logger.Info().Int64("chat_id", cfg.TelegramChatID).Msg("已启用 Telegram 审计推送")
		}
	}

	return sinks
}
