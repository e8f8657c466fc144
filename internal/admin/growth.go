package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// Snapshot is one day's dashboard totals, retained for growth math.
type Snapshot struct {
	TakenAt time.Time             `json:"taken_at"`
	Stats   portal.DashboardStats `json:"stats"`
}

// Archive stores dashboard snapshots. Implementations retain at most the
// configured window; older snapshots are pruned on save.
type Archive interface {
	Save(ctx context.Context, snap Snapshot) error
	List(ctx context.Context) ([]Snapshot, error)
}

// MemoryArchive keeps snapshots in process. Used when no Redis address is
// configured; history is lost on restart.
type MemoryArchive struct {
	retention time.Duration

	mu    sync.Mutex
	snaps []Snapshot
}

// NewMemoryArchive creates an in-process archive.
func NewMemoryArchive(retention time.Duration) *MemoryArchive {
	return &MemoryArchive{retention: retention}
}

func (a *MemoryArchive) Save(ctx context.Context, snap Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := snap.TakenAt.Add(-a.retention)
	kept := a.snaps[:0]
	for _, s := range a.snaps {
		if s.TakenAt.After(cutoff) {
			kept = append(kept, s)
		}
	}
	a.snaps = append(kept, snap)
	return nil
}

func (a *MemoryArchive) List(ctx context.Context) ([]Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Snapshot, len(a.snaps))
	copy(out, a.snaps)
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

const redisSnapshotKey = "telehealth:dashboard:snapshots"

// RedisArchive keeps snapshots in a Redis sorted set scored by capture time,
// so history survives daemon restarts.
type RedisArchive struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisArchive creates a Redis-backed archive.
func NewRedisArchive(client *redis.Client, retention time.Duration) (*RedisArchive, error) {
	if client == nil {
		return nil, errors.New("admin: redis client required")
	}
	return &RedisArchive{client: client, retention: retention}, nil
}

func (a *RedisArchive) Save(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("admin: marshal snapshot: %w", err)
	}
	pipe := a.client.TxPipeline()
	pipe.ZAdd(ctx, redisSnapshotKey, redis.Z{
		Score:  float64(snap.TakenAt.Unix()),
		Member: payload,
	})
	cutoff := snap.TakenAt.Add(-a.retention).Unix()
	pipe.ZRemRangeByScore(ctx, redisSnapshotKey, "-inf", fmt.Sprintf("(%d", cutoff))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("admin: save snapshot: %w", err)
	}
	return nil
}

func (a *RedisArchive) List(ctx context.Context) ([]Snapshot, error) {
	members, err := a.client.ZRange(ctx, redisSnapshotKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("admin: list snapshots: %w", err)
	}
	snaps := make([]Snapshot, 0, len(members))
	for _, m := range members {
		var snap Snapshot
		if err := json.Unmarshal([]byte(m), &snap); err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Growth is the change in dashboard totals over a trailing window. Percent
// fields are zero when no baseline snapshot exists for the window.
type Growth struct {
	Window        time.Duration `json:"window"`
	Baseline      *Snapshot     `json:"baseline,omitempty"`
	Patients      Delta         `json:"patients"`
	Doctors       Delta         `json:"doctors"`
	Consultations Delta         `json:"consultations"`
	Prescriptions Delta         `json:"prescriptions"`
}

// Delta is one counter's absolute and relative change.
type Delta struct {
	Change  int64   `json:"change"`
	Percent float64 `json:"percent"`
}

func delta(then, now int64) Delta {
	d := Delta{Change: now - then}
	if then > 0 {
		d.Percent = float64(d.Change) / float64(then) * 100
	}
	return d
}

// DashboardAPI fetches the current dashboard totals.
type DashboardAPI interface {
	GetDashboard(ctx context.Context) (*portal.DashboardStats, error)
}

// GrowthService records daily dashboard snapshots and computes growth as
// real deltas between retained snapshots.
type GrowthService struct {
	api     DashboardAPI
	archive Archive
	logger  *logging.Logger
	now     func() time.Time

	cron *cron.Cron
}

// NewGrowthService creates the growth service.
func NewGrowthService(api DashboardAPI, archive Archive, logger *logging.Logger) (*GrowthService, error) {
	if api == nil {
		return nil, errors.New("admin: dashboard api required")
	}
	if archive == nil {
		return nil, errors.New("admin: snapshot archive required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GrowthService{
		api:     api,
		archive: archive,
		logger:  logger.Component("growth"),
		now:     time.Now,
	}, nil
}

// RecordSnapshot fetches the current dashboard and archives it.
func (g *GrowthService) RecordSnapshot(ctx context.Context) error {
	stats, err := g.api.GetDashboard(ctx)
	if err != nil {
		return fmt.Errorf("admin: snapshot dashboard: %w", err)
	}
	snap := Snapshot{TakenAt: g.now(), Stats: *stats}
	if err := g.archive.Save(ctx, snap); err != nil {
		return err
	}
	g.logger.Info("dashboard snapshot recorded",
		"patients", stats.TotalPatients,
		"consultations", stats.TotalConsultations,
	)
	return nil
}

// Compute returns growth over the trailing window against the newest
// snapshot taken at or before the window's start. With no such snapshot the
// deltas are zero and Baseline is nil.
func (g *GrowthService) Compute(ctx context.Context, current portal.DashboardStats, window time.Duration) (*Growth, error) {
	snaps, err := g.archive.List(ctx)
	if err != nil {
		return nil, err
	}
	start := g.now().Add(-window)
	var baseline *Snapshot
	for i := range snaps {
		if snaps[i].TakenAt.After(start) {
			continue
		}
		if baseline == nil || snaps[i].TakenAt.After(baseline.TakenAt) {
			baseline = &snaps[i]
		}
	}
	growth := &Growth{Window: window, Baseline: baseline}
	if baseline == nil {
		return growth, nil
	}
	growth.Patients = delta(baseline.Stats.TotalPatients, current.TotalPatients)
	growth.Doctors = delta(baseline.Stats.TotalDoctors, current.TotalDoctors)
	growth.Consultations = delta(baseline.Stats.TotalConsultations, current.TotalConsultations)
	growth.Prescriptions = delta(baseline.Stats.TotalPrescriptions, current.TotalPrescriptions)
	return growth, nil
}

// StartSnapshotJob schedules RecordSnapshot on the given cron spec. Call
// StopSnapshotJob on shutdown.
func (g *GrowthService) StartSnapshotJob(spec string) error {
	if g.cron != nil {
		return errors.New("admin: snapshot job already running")
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := g.RecordSnapshot(ctx); err != nil {
			g.logger.Error("scheduled snapshot failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("admin: schedule snapshot job: %w", err)
	}
	c.Start()
	g.cron = c
	g.logger.Info("snapshot job scheduled", "spec", spec)
	return nil
}

// StopSnapshotJob stops the cron scheduler and waits for a running job.
func (g *GrowthService) StopSnapshotJob() {
	if g.cron == nil {
		return
	}
	<-g.cron.Stop().Done()
	g.cron = nil
}
