package utils

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DailyLog is a debug log file that starts a new file at local midnight.
// Rotated files keep the lumberjack timestamp suffix and are never pruned.
type DailyLog struct {
	*lumberjack.Logger
	scheduler *gocron.Scheduler
}

func OpenDailyLog(path string) (*DailyLog, error) {
	d := &DailyLog{
		Logger:    &lumberjack.Logger{Filename: path, LocalTime: true},
		scheduler: gocron.NewScheduler(time.Local),
	}
	if _, err := d.scheduler.Every(1).Day().At("00:00").Do(d.rotate); err != nil {
		return nil, fmt.Errorf("schedule log rotation: %w", err)
	}
	d.scheduler.StartAsync()
	return d, nil
}

func (d *DailyLog) rotate() {
	if err := d.Logger.Rotate(); err != nil {
		slog.Warn("can't rotate debug log", slog.String("file", d.Filename), slog.Any("error", err))
	}
}

func (d *DailyLog) Close() error {
	d.scheduler.Stop()
	return d.Logger.Close()
}
