package app

import (
	"errors"
	"time"

	"github.com/fireguard-store/storefront/internal/config"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/provider"
	"github.com/fireguard-store/storefront/internal/queue"
	"github.com/fireguard-store/storefront/internal/router"
	"github.com/fireguard-store/storefront/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return buildRunner(cfg, mode, provider.NewContainer(cfg))
}

func buildRunner(cfg *config.Config, mode string, container *provider.Container) (*Runner, error) {
	var services []Service

	// 初始化 HTTP 服务与会话清理
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
		idle := time.Duration(cfg.Session.IdleEvictMinute) * time.Minute
		services = append(services, NewSessionJanitor(container.Sessions, idle))
		warmLocales(container)
	}

	// 初始化 Worker 服务；all 模式下队列未启用时跳过
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// warmLocales 为每个支持的语言投递预热任务
func warmLocales(container *provider.Container) {
	if !container.QueueClient.Enabled() {
		return
	}
	for i, locale := range container.Catalog.Locales().Supported() {
		delay := time.Duration(i) * time.Second
		if err := container.QueueClient.EnqueueCatalogWarmLocale(queue.CatalogWarmLocalePayload{Locale: locale}, delay); err != nil {
			logger.Warnw("app_enqueue_catalog_warm_failed", "locale", locale, "error", err)
		}
	}
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
