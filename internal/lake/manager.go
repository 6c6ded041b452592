package lake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/validation"
	"github.com/hooplab/goatindex/pkg/logger"
	"github.com/hooplab/goatindex/pkg/redis"
	"github.com/hooplab/goatindex/pkg/storage"
)

// Manager owns snapshot lifecycle for the three tiers: creation,
// versioning and retention of immutable, write-once snapshots. The
// validation engine only inspects; the manager decides whether a commit
// materializes.
type Manager struct {
	store    storage.Store
	engine   *validation.Engine
	rulesets map[contracts.Tier]*validation.Ruleset
	cache    *redis.Cache
	timeout  time.Duration
	logger   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager. rulesets maps a tier to the ruleset its
// commits are validated against; tiers without an entry accept every
// record (bronze normally has none). cache may be backed by a disabled
// client.
func NewManager(store storage.Store, rulesets map[contracts.Tier]*validation.Ruleset, cache *redis.Cache, timeout time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		store:    store,
		engine:   validation.NewEngine(log),
		rulesets: rulesets,
		cache:    cache,
		timeout:  timeout,
		logger:   log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// CommitResult reports a successful commit.
type CommitResult struct {
	Tier      contracts.Tier
	Partition string
	Version   int
	Report    *validation.Report
}

// Commit validates the records against the tier's ruleset and, if the
// snapshot survives, materializes a new immutable version. A snapshot
// that fails validation is never materialized: nothing is written before
// the report is clean, and the version only becomes discoverable with
// the final manifest rewrite. Commits to the same (tier, partition) are
// serialized on an advisory lock; concurrent commits queue rather than
// interleave.
func (m *Manager) Commit(ctx context.Context, tier contracts.Tier, partition string, records []contracts.Record) (*CommitResult, error) {
	if err := checkPartition(partition); err != nil {
		return nil, err
	}

	lock := m.partitionLock(tier, partition)
	lock.Lock()
	defer lock.Unlock()

	report := m.validate(records, tier)
	if report.SnapshotRejected() {
		m.logger.WithFields(map[string]interface{}{
			"tier":      tier,
			"partition": partition,
			"reasons":   len(report.Snapshot),
		}).Warn("Snapshot rejected by validation")
		return nil, &validation.Error{Report: report}
	}

	data, err := json.MarshalIndent(report.Accepted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	version, err := m.commitPayload(ctx, tier, partition, data, report)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"tier":      tier,
		"partition": partition,
		"version":   version,
		"accepted":  len(report.Accepted),
		"rejected":  len(report.Rejected),
	}).Info("Snapshot committed")

	return &CommitResult{Tier: tier, Partition: partition, Version: version, Report: report}, nil
}

// validate runs the tier's ruleset, or passes every record through in
// sorted order when the tier has none.
func (m *Manager) validate(records []contracts.Record, tier contracts.Tier) *validation.Report {
	if rs, ok := m.rulesets[tier]; ok && rs != nil {
		return m.engine.Validate(records, rs)
	}

	accepted := make([]contracts.Record, len(records))
	copy(accepted, records)
	contracts.SortRecords(accepted)
	return &validation.Report{Total: len(records), Accepted: accepted}
}

// commitPayload writes the data object and report, then rewrites the
// manifest. The manifest write relies on the store's atomic replace: a
// crash beforehand leaves orphan objects that are never listed.
func (m *Manager) commitPayload(ctx context.Context, tier contracts.Tier, partition string, data []byte, report *validation.Report) (int, error) {
	manifest, err := m.readManifest(ctx, tier, partition)
	if err != nil {
		return 0, err
	}
	version := manifest.NextVersion()

	opCtx, cancel := m.opCtx(ctx)
	err = m.store.Write(opCtx, dataKey(tier, partition, version), data)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("write snapshot data: %w", err)
	}

	reportBytes, err := report.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}
	opCtx, cancel = m.opCtx(ctx)
	err = m.store.Write(opCtx, reportKey(tier, partition, version), reportBytes)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}

	manifest.Versions = append(manifest.Versions, VersionInfo{
		Version:   version,
		Records:   len(report.Accepted),
		CreatedAt: time.Now().UTC(),
		Summary:   report.Summarize(),
	})
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode manifest: %w", err)
	}
	opCtx, cancel = m.opCtx(ctx)
	err = m.store.Write(opCtx, manifestKey(tier, partition), manifestBytes)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("commit manifest: %w", err)
	}

	return version, nil
}

// Load returns the record set of one committed version. Versions are
// immutable, so reads go through the cache when one is configured.
func (m *Manager) Load(ctx context.Context, tier contracts.Tier, partition string, version int) ([]contracts.Record, error) {
	var records []contracts.Record
	if err := m.loadPayload(ctx, tier, partition, version, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadLatest returns the most recent committed version. Latest is read
// from the manifest, so it is linearizable with the last successful
// commit for the partition.
func (m *Manager) LoadLatest(ctx context.Context, tier contracts.Tier, partition string) ([]contracts.Record, int, error) {
	manifest, err := m.readManifest(ctx, tier, partition)
	if err != nil {
		return nil, 0, err
	}
	latest, ok := manifest.Latest()
	if !ok {
		return nil, 0, fmt.Errorf("%s/%s: %w", tier, partition, storage.ErrNotFound)
	}

	records, err := m.Load(ctx, tier, partition, latest.Version)
	return records, latest.Version, err
}

// loadPayload reads one immutable version into dest, refusing versions
// the manifest does not list (orphans from failed commits are not
// observable data).
func (m *Manager) loadPayload(ctx context.Context, tier contracts.Tier, partition string, version int, dest interface{}) error {
	manifest, err := m.readManifest(ctx, tier, partition)
	if err != nil {
		return err
	}
	if !manifest.Has(version) {
		return fmt.Errorf("%s/%s v%d: %w", tier, partition, version, storage.ErrNotFound)
	}

	key := dataKey(tier, partition, version)

	if m.cache != nil {
		if found, err := m.cache.Get(ctx, key, dest); err == nil && found {
			return nil
		}
	}

	opCtx, cancel := m.opCtx(ctx)
	data, err := m.store.Read(opCtx, key)
	cancel()
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}

	if m.cache != nil {
		// Committed versions never change; cache without expiry.
		_ = m.cache.Set(ctx, key, dest, 0)
	}

	return nil
}

// Versions lists the committed versions of a partition. Only fully
// committed versions appear; a partition that was never committed lists
// empty.
func (m *Manager) Versions(ctx context.Context, tier contracts.Tier, partition string) ([]VersionInfo, error) {
	manifest, err := m.readManifest(ctx, tier, partition)
	if err != nil {
		return nil, err
	}
	return manifest.Versions, nil
}

// Partitions lists the partitions that have a manifest at a tier.
func (m *Manager) Partitions(ctx context.Context, tier contracts.Tier) ([]string, error) {
	opCtx, cancel := m.opCtx(ctx)
	keys, err := m.store.List(opCtx, string(tier)+"/")
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list %s partitions: %w", tier, err)
	}

	var partitions []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, string(tier)+"/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) == 2 && parts[1] == "manifest.json" {
			partitions = append(partitions, parts[0])
		}
	}
	return partitions, nil
}

// Report loads the stored validation report of one committed version.
func (m *Manager) Report(ctx context.Context, tier contracts.Tier, partition string, version int) (*validation.Report, error) {
	manifest, err := m.readManifest(ctx, tier, partition)
	if err != nil {
		return nil, err
	}
	if !manifest.Has(version) {
		return nil, fmt.Errorf("%s/%s v%d: %w", tier, partition, version, storage.ErrNotFound)
	}

	opCtx, cancel := m.opCtx(ctx)
	data, err := m.store.Read(opCtx, reportKey(tier, partition, version))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report validation.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// CommitScores materializes a gold snapshot of Score entities. Scores are
// append-only: a re-run with different weights produces a new version and
// never mutates a prior one. The score range invariant is enforced here
// as a last line of defense.
func (m *Manager) CommitScores(ctx context.Context, partition string, scores []contracts.Score) (*CommitResult, error) {
	if err := checkPartition(partition); err != nil {
		return nil, err
	}

	for _, s := range scores {
		if s.Status != contracts.StatusScored {
			continue
		}
		if s.Composite < 0 || s.Composite > 100 {
			return nil, fmt.Errorf("score for %s out of range: %g", s.PlayerID, s.Composite)
		}
	}

	lock := m.partitionLock(contracts.TierGold, partition)
	lock.Lock()
	defer lock.Unlock()

	ordered := make([]contracts.Score, len(scores))
	copy(ordered, scores)
	contracts.SortScores(ordered)

	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scores: %w", err)
	}

	report := &validation.Report{Total: len(ordered)}
	version, err := m.commitPayload(ctx, contracts.TierGold, partition, data, report)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"partition": partition,
		"version":   version,
		"scores":    len(ordered),
	}).Info("Gold snapshot committed")

	return &CommitResult{Tier: contracts.TierGold, Partition: partition, Version: version, Report: report}, nil
}

// LoadScores returns the Score entities of one gold version.
func (m *Manager) LoadScores(ctx context.Context, partition string, version int) ([]contracts.Score, error) {
	var scores []contracts.Score
	if err := m.loadPayload(ctx, contracts.TierGold, partition, version, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// LoadLatestScores returns the most recent gold snapshot for a partition.
func (m *Manager) LoadLatestScores(ctx context.Context, partition string) ([]contracts.Score, int, error) {
	manifest, err := m.readManifest(ctx, contracts.TierGold, partition)
	if err != nil {
		return nil, 0, err
	}
	latest, ok := manifest.Latest()
	if !ok {
		return nil, 0, fmt.Errorf("gold/%s: %w", partition, storage.ErrNotFound)
	}

	scores, err := m.LoadScores(ctx, partition, latest.Version)
	return scores, latest.Version, err
}

// readManifest loads the partition manifest, or an empty one if the
// partition was never committed.
func (m *Manager) readManifest(ctx context.Context, tier contracts.Tier, partition string) (*Manifest, error) {
	opCtx, cancel := m.opCtx(ctx)
	data, err := m.store.Read(opCtx, manifestKey(tier, partition))
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Manifest{Tier: tier, Partition: partition}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s/%s: %w", tier, partition, err)
	}
	return &manifest, nil
}

// partitionLock returns the advisory commit lock for (tier, partition).
func (m *Manager) partitionLock(tier contracts.Tier, partition string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(tier) + "/" + partition
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// opCtx bounds a single storage operation. On timeout the store surfaces
// ErrUnavailable and the caller may retry with backoff.
func (m *Manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// checkPartition rejects partition labels that would break the key
// layout.
func checkPartition(partition string) error {
	if partition == "" {
		return fmt.Errorf("partition is required")
	}
	if strings.ContainsAny(partition, "/\\") {
		return fmt.Errorf("invalid partition label: %q", partition)
	}
	return nil
}
