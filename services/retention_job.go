package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/repository"
)

// DefaultRetentionCron, her gün 04:00 UTC.
const DefaultRetentionCron = "0 4 * * *"

// RetentionJob, okunmuş eski bildirimleri cron takvimine göre siler.
// Okunmamış bildirimler yaşına bakılmaksızın korunur.
type RetentionJob struct {
	notifications repository.NotificationRepository
	cron          string
	maxAge        time.Duration
	log           *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewRetentionJob, cron ifadesini doğrular. Boş ifade DefaultRetentionCron olur.
func NewRetentionJob(notifications repository.NotificationRepository, cron string, maxAge time.Duration, log *logger.Logger) (*RetentionJob, error) {
	if cron == "" {
		cron = DefaultRetentionCron
	}
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid retention cron expression: %s", cron)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("invalid retention max age: %s", maxAge)
	}
	return &RetentionJob{
		notifications: notifications,
		cron:          cron,
		maxAge:        maxAge,
		log:           log,
	}, nil
}

// Start, zamanlayıcı goroutine'ini başlatır.
func (j *RetentionJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go j.run(ctx)
	j.log.Info("retention scheduler started", zap.String("cron", j.cron), zap.Duration("max_age", j.maxAge))
}

// Stop, zamanlayıcıyı durdurur ve çıkmasını bekler.
func (j *RetentionJob) Stop() {
	j.once.Do(func() {
		if j.cancel == nil {
			return
		}
		j.cancel()
		<-j.done
	})
}

func (j *RetentionJob) run(ctx context.Context) {
	defer close(j.done)

	for {
		next, err := gronx.NextTickAfter(j.cron, time.Now().UTC(), false)
		if err != nil {
			j.log.Error("retention next tick failed", zap.String("cron", j.cron), zap.Error(err))
			next = time.Now().Add(time.Minute)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := j.RunOnce(ctx, time.Now().UTC()); err != nil {
			j.log.Error("retention run failed", zap.Error(err))
		}
	}
}

// RunOnce, now - maxAge öncesindeki okunmuş bildirimleri siler.
func (j *RetentionJob) RunOnce(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := j.notifications.DeleteReadBefore(ctx, now.Add(-j.maxAge))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		j.log.Info("pruned read notifications", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
