package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"quotebot/internal/bot"
	"quotebot/internal/config"
	"quotebot/internal/daily"
	"quotebot/internal/quotes"
	rtsup "quotebot/internal/runtime/supervisor"
	"quotebot/internal/storage"
	kit "quotebot/internal/transport"
	telegram "quotebot/internal/transport/telegram"
	logx "quotebot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store  storage.Store
	source *quotes.Source

	adapter kit.Adapter
	router  *bot.Router
	daily   *daily.Service

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	token, err := cfg.Telegram.ResolveToken()
	if err != nil {
		return nil, err
	}
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	qc, err := mapQuotesConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	source := quotes.NewSource(store, qc, logSvc.Logger().With(logx.String("comp", "quotes")))

	router := bot.NewRouter(bot.Config{
		Owners:      cfg.Telegram.OwnerUserIDs,
		RatePerChat: cfg.Telegram.RatePerChat,
		Burst:       cfg.Telegram.Burst,
	}, ad, logSvc.Logger().With(logx.String("comp", "bot")))
	router.Register(bot.NewHandlers(source, store, logSvc.Logger()).Commands()...)

	dailySvc := daily.New(mapDailyConfig(cfg), source, store, ad,
		logSvc.Logger().With(logx.String("comp", "daily")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		source:  source,
		adapter: ad,
		router:  router,
		daily:   dailySvc,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return Validate(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	// One dispatch loop: commands are cheap, and the serving core serializes
	// concurrent callers anyway.
	a.sup.Go0("updates.dispatch", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case up := <-a.updates:
				a.router.HandleUpdate(c, up)
			}
		}
	})

	if err := a.daily.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go0("config.watch", func(c context.Context) {
		_ = a.cfgm.Watch(c)
	})
	a.sup.Go0("config.apply", func(c context.Context) {
		ch := a.cfgm.Subscribe(2)
		defer a.cfgm.Unsubscribe(ch)
		for {
			select {
			case <-c.Done():
				return
			case cfg := <-ch:
				if cfg == nil {
					continue
				}
				a.applyConfig(cfg)
			}
		}
	})

	// Publish the command menu; best-effort, Telegram may be slow.
	if mu, ok := a.adapter.(kit.CommandMenuUpdater); ok {
		a.sup.Go0("menu.update", func(c context.Context) {
			mctx, cancel := context.WithTimeout(c, 15*time.Second)
			defer cancel()
			if err := mu.UpdateMenuCommands(mctx, a.router.Commands()); err != nil {
				a.log.Warn("command menu update failed", logx.Err(err))
			}
		})
	}

	// Tell systemd we're up (no-op outside systemd).
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

// applyConfig applies what is hot-reloadable: logging sinks/level and the
// serving buffer size. Token, storage and schedule changes need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLoggingConfig(cfg))
	if n := cfg.Quotes.BufferSize; n > 0 {
		a.source.SetCapacity(n)
	}
	a.log.Info("config applied", logx.Int("buffer_size", cfg.Quotes.BufferSize))
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	a.daily.Stop(ctx)
	_ = a.adapter.Stop(ctx)

	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = a.sup.Wait(wctx)
		cancel()
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	_ = a.logs.Close()
	return nil
}

// Validate is the global config validation used at load and on hot reload.
func Validate(cfg *config.Config) error {
	if cfg.Quotes.BufferSize < 0 {
		return fmt.Errorf("quotes.buffer_size must be >= 0")
	}
	if cfg.Telegram.RatePerChat < 0 {
		return fmt.Errorf("telegram.rate_per_chat must be >= 0")
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("quotes.refill_timeout", cfg.Quotes.RefillTimeout); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return mapDailyConfig(cfg).Validate()
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	driver := cfg.Storage.Driver
	if driver == "" {
		driver = "sqlite"
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapQuotesConfig(cfg *config.Config) (quotes.Config, error) {
	refill, err := config.ParseDurationOrDefault("quotes.refill_timeout", cfg.Quotes.RefillTimeout, 5*time.Second)
	if err != nil {
		return quotes.Config{}, err
	}
	return quotes.Config{
		Capacity:      cfg.Quotes.BufferSize,
		RefillTimeout: refill,
	}, nil
}

func mapDailyConfig(cfg *config.Config) daily.Config {
	schedule := cfg.Daily.Schedule
	if schedule == "" {
		schedule = "0 9 * * *"
	}
	return daily.Config{
		Enabled:  cfg.Daily.Enabled,
		Schedule: schedule,
		Timezone: cfg.Daily.Timezone,
	}
}
