package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hearth/internal/audit"
	"hearth/internal/cache"
	"hearth/internal/config"
	"hearth/internal/database"
	"hearth/internal/events"
	"hearth/internal/metrics"
	"hearth/internal/model"
	"hearth/internal/notify"
	"hearth/internal/qualification"
	"hearth/internal/schedule"
	"hearth/internal/service"
	"hearth/internal/slots"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("HEARTH_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var scheduleCache schedule.Cache
	if rdb != nil {
		scheduleCache = cache.NewFailoverCache(
			cache.NewRedisCache(rdb, 30*time.Second),
			cache.NewMemoryCache(30*time.Second),
			&logger,
		)
	} else {
		scheduleCache = cache.NewMemoryCache(30 * time.Second)
	}

	resolver := schedule.NewResolver(db, logger)
	cachedResolver := schedule.NewCachedResolver(resolver, scheduleCache, logger)
	generator := slots.NewGenerator(db, cfg.SlotGranularity())
	bus := events.NewEventBus()

	var limiter qualification.RateLimiter
	if rdb != nil {
		limiter = cache.NewRateLimiter(rdb)
	}
	qualService := qualification.NewService(db, bus, limiter, logger)

	policy := service.Policy{
		MinAdvance:       cfg.BookingMinAdvance(),
		MaxAdvance:       cfg.BookingMaxAdvance(),
		MaxActivePerUser: cfg.Booking.MaxActivePerUser,
	}
	reservations := service.NewReservationService(db, cachedResolver, generator, qualService, bus, policy, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	dispatcher := notify.NewDispatcher(
		&notify.LogSender{Logger: logger},
		cfg.Notifications.PerSecond,
		cfg.Notifications.Burst,
		notify.NewMetrics("hearth"),
		logger,
	)
	dispatcher.SubscribeAll(bus)
	dispatcher.Start(ctx)

	var auditService *audit.Service
	if cfg.Audit.Enabled {
		auditService = audit.NewService(
			&audit.Config{
				DataRetentionDays: cfg.Audit.RetentionDays,
				ExportPath:        cfg.Audit.ExportPath,
			},
			db,
			audit.NewExcelizeWriter,
			db,
			logger,
		)
		auditService.Start()
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, database.BackupConfig{
			Enabled:       true,
			Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, logger)
		go backup.Start(ctx)
	}

	kitchensPath := os.Getenv("HEARTH_KITCHENS_PATH")
	err = config.WatchKitchens(ctx, kitchensPath, 30*time.Second, logger, func(kc *config.KitchensConfig) {
		if err := seedKitchens(ctx, db, kc, &logger); err != nil {
			logger.Error().Err(err).Msg("seed kitchens failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load kitchens config")
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go warmSchedules(ctx, db, reservations, &logger)

	logger.Info().Msg("hearth server started")

	<-ctx.Done()

	if auditService != nil {
		auditService.Stop()
	}
	dispatcher.Wait()
	logger.Info().Msg("hearth server stopped")
}

// seedKitchens upserts kitchens from the seed file, fills in default
// weekly rules and marks configured holidays closed.
func seedKitchens(ctx context.Context, db *database.DB, kc *config.KitchensConfig, logger *zerolog.Logger) error {
	if kc.Defaults.Schedule != nil {
		database.DefaultScheduleConfig.StartTime = kc.Defaults.Schedule.StartTime
		database.DefaultScheduleConfig.EndTime = kc.Defaults.Schedule.EndTime
	}

	for _, k := range kc.Kitchens {
		kitchen := &model.Kitchen{
			GroupID:     k.GroupID,
			Name:        k.Name,
			Description: k.Description,
			Capacity:    k.Capacity,
			IsActive:    k.IsActive,
		}
		if err := db.UpsertKitchen(ctx, kitchen); err != nil {
			return fmt.Errorf("upsert kitchen %s: %w", k.Name, err)
		}
	}

	kitchens, err := db.ListActiveKitchens(ctx)
	if err != nil {
		return fmt.Errorf("list kitchens: %w", err)
	}
	idByName := make(map[string]int64, len(kitchens))
	for _, k := range kitchens {
		idByName[k.Name] = k.ID
	}

	// Fill missing weekly rules with each kitchen's configured hours.
	// Existing rules are operator state and stay untouched.
	for _, k := range kc.Kitchens {
		id, ok := idByName[k.Name]
		if !ok {
			continue
		}
		sched := k.DefaultSchedule
		for wd := 0; wd <= 6; wd++ {
			existing, err := db.GetWeeklyRule(ctx, id, wd)
			if err != nil {
				return fmt.Errorf("check rule: %w", err)
			}
			if existing != nil {
				continue
			}
			rule := &model.WeeklyRule{
				KitchenID: id,
				DayOfWeek: wd,
				IsOpen:    !kc.IsDayOff(time.Weekday(wd)),
				StartTime: database.DefaultScheduleConfig.StartTime,
				EndTime:   database.DefaultScheduleConfig.EndTime,
				Capacity:  k.Capacity,
			}
			if sched != nil {
				rule.StartTime = sched.StartTime
				rule.EndTime = sched.EndTime
			}
			if err := db.UpsertWeeklyRule(ctx, rule); err != nil {
				return fmt.Errorf("seed rule for kitchen %d day %d: %w", id, wd, err)
			}
		}
	}

	// Safety net for active kitchens created outside the seed file.
	var openDays []int
	for wd := 0; wd <= 6; wd++ {
		if !kc.IsDayOff(time.Weekday(wd)) {
			openDays = append(openDays, wd)
		}
	}
	if err := db.EnsureDefaultRules(ctx, openDays); err != nil {
		return fmt.Errorf("ensure default rules: %w", err)
	}
	for _, h := range kc.Holidays {
		date, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			continue
		}
		for _, k := range kitchens {
			if err := db.SetDayClosed(ctx, k.ID, date, h.Name); err != nil {
				return fmt.Errorf("close %s for kitchen %d: %w", h.Date, k.ID, err)
			}
		}
	}

	logger.Info().Str("config", kc.String()).Msg("kitchens seeded")
	return nil
}

// warmSchedules primes the schedule cache by resolving today's slots
// for every active kitchen, so the first real availability query after
// startup does not pay the resolve cost.
func warmSchedules(ctx context.Context, db *database.DB, reservations *service.ReservationService, logger *zerolog.Logger) {
	kitchens, err := db.ListActiveKitchens(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("schedule warmup skipped")
		return
	}
	today := time.Now()
	for _, k := range kitchens {
		slotList, err := reservations.ListAvailableSlots(ctx, k.ID, today)
		if err != nil {
			logger.Warn().Err(err).Int64("kitchen_id", k.ID).Msg("schedule warmup failed")
			continue
		}
		logger.Debug().Int64("kitchen_id", k.ID).Int("slots", len(slotList)).Msg("schedule warmed")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
