// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает очистку старой истории голосов.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Pruner удаляет записи о голосах старше cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	schedule  string
	clock     clockwork.Clock
	pruned    prometheus.Counter
}

// NewScheduler создаёт планировщик. retention: factor × cooldown, не меньше окна.
func NewScheduler(pruner Pruner, retention time.Duration, schedule string, clock clockwork.Clock, pruned prometheus.Counter) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:      c,
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		clock:     clock,
		pruned:    pruned,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		log.Debug("[CRON] Очистка истории голосов")
		if _, err := s.PruneOnce(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки истории голосов")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"schedule":  s.schedule,
		"retention": s.retention.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// PruneOnce удаляет записи старше retention относительно текущего времени.
func (s *Scheduler) PruneOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.retention)

	n, err := s.pruner.Prune(ctx, cutoff)
	if n > 0 {
		s.pruned.Add(float64(n))
	}
	if err != nil {
		return n, err
	}

	log.WithFields(log.Fields{
		"removed": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("[CRON] История голосов очищена")
	return n, nil
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
