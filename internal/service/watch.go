package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// debounce coalesces the burst of events editors emit on save.
const debounce = 500 * time.Millisecond

// ── Watchers (cron + file_watch) ──────────────────────────

// Watch reseeds planPath on every change to the plan file and, when schedule
// is a cron expression, on that schedule. It blocks until ctx is cancelled.
// Runs that find the plan already running are skipped.
func (s *SeedService) Watch(ctx context.Context, planPath, schedule string, dryRun bool) error {
	absPath, err := filepath.Abs(planPath)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", planPath, err)
	}

	trigger := func(kind string) {
		if _, err := s.RunWithTrigger(ctx, planPath, dryRun, kind); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				log.Printf("[SEED] %s: skipped, previous run still in flight", kind)
				return
			}
			log.Printf("[SEED] %s run of %s failed: %v", kind, planPath, err)
		}
	}

	if schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(schedule, func() {
			log.Printf("[SEED] cron: running %s", planPath)
			trigger(TriggerSchedule)
		}); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
		c.Start()
		defer c.Stop()
		log.Printf("[SEED] cron: scheduled %s (%s)", planPath, schedule)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %q: %w", filepath.Dir(absPath), err)
	}
	log.Printf("[SEED] watcher: watching %s", absPath)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				log.Printf("[SEED] watcher: %s changed", absPath)
				trigger(TriggerFileWatch)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[SEED] watcher: error: %v", err)
		}
	}
}
