package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pairgate/pairgate/internal/domain"
	"github.com/pairgate/pairgate/pkg/metrics"
)

// staleAfter is how long an abandoned credential directory may linger before
// the sweep removes it. Directories with a meta sidecar are never swept.
const staleAfter = time.Hour

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 10m", func() {
		a.SchedSweepStaleSessions()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1m", func() {
		a.SchedSessionCountTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.gormDB.
			Where("status = ? and updated_at < ?", domain.SessionFailed,
				time.Now().Add(-time.Hour*24*30)).Delete(&domain.WaSession{})
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSweepStaleSessions removes credential directories left behind by
// crashed or abandoned pairing attempts.
func (a *Application) SchedSweepStaleSessions() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	stale, err := a.creds.StaleSince(time.Now().Add(-staleAfter))
	if err != nil {
		zap.L().Warn("stale session scan failed", zap.Error(err))
		return
	}
	for _, id := range stale {
		if err := a.creds.Destroy(id); err != nil {
			zap.L().Warn("stale session destroy failed", zap.String("session_id", id), zap.Error(err))
			continue
		}
		zap.L().Info("swept stale session directory", zap.String("session_id", id))
		metrics.IncrCounter("session_swept")
	}
}

// SchedSessionCountTask records session table gauges.
func (a *Application) SchedSessionCountTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	var done, failed int64
	a.gormDB.Model(&domain.WaSession{}).Where("status = ?", domain.SessionDone).Count(&done)
	a.gormDB.Model(&domain.WaSession{}).Where("status = ?", domain.SessionFailed).Count(&failed)
	metrics.SetGauge("sessions_done", done)
	metrics.SetGauge("sessions_failed", failed)
}
