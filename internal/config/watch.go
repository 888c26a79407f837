package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchKitchens loads the kitchens seed file, hands it to onUpdate, and
// keeps polling the file's mtime so operator edits take effect without a
// restart. The initial load must succeed; later reload failures keep the
// previous config and are logged, never fatal.
func WatchKitchens(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onUpdate func(*KitchensConfig)) error {
	if path == "" {
		path = "configs/kitchens.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := logger.With().Str("component", "kitchens_watch").Str("path", path).Logger()

	cfg, err := LoadKitchensConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	go watchLoop(ctx, path, interval, info.ModTime(), log, onUpdate)
	return nil
}

func watchLoop(ctx context.Context, path string, interval time.Duration, lastMod time.Time, log zerolog.Logger, onUpdate func(*KitchensConfig)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				log.Warn().Err(err).Msg("kitchens config stat failed, keeping current config")
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			cfg, err := LoadKitchensConfig(path)
			if err != nil {
				// A half-saved or invalid edit must not take down the
				// running schedule; the operator fixes the file and the
				// next tick picks it up.
				log.Error().Err(err).Msg("kitchens config reload failed, keeping current config")
				continue
			}
			lastMod = info.ModTime()
			log.Info().Str("config", cfg.String()).Msg("kitchens config reloaded")
			if onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}
}
