// Package backup writes per-user JSON snapshots of every owned collection
// to object storage and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/gcs"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// SnapshotVersion is written into every snapshot; Restore refuses others.
const SnapshotVersion = 1

const (
	objectPrefix = "backups"
	nameLayout   = "20060102T150405.000Z"
)

// ErrNoBackups is returned by Latest when a user has no snapshot.
var ErrNoBackups = errors.New("no backups found")

// profileFields are the profile fields a snapshot carries. Credentials and
// the email stay with the live account.
var profileFields = []string{"name", "avatar", "preferences"}

// Entry is one document in a snapshot.
type Entry struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Snapshot is the stored backup format.
type Snapshot struct {
	Version     int                `json:"version"`
	UserID      string             `json:"userId"`
	CreatedAt   time.Time          `json:"createdAt"`
	Profile     map[string]any     `json:"profile,omitempty"`
	Collections map[string][]Entry `json:"collections"`
}

// Counts returns the number of documents per collection.
func (s *Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.Collections))
	for c, entries := range s.Collections {
		out[c] = len(entries)
	}
	return out
}

// Service backs up and restores users.
type Service struct {
	docs      docstore.Store
	objects   gcs.ObjectStore
	now       func() time.Time
	onRestore []func(ctx context.Context, userID string)
}

// Option configures a Service.
type Option func(*Service)

// WithRestoreHook registers fn to run after a restore has committed, for
// dropping read models derived from the replaced documents.
func WithRestoreHook(fn func(ctx context.Context, userID string)) Option {
	return func(s *Service) { s.onRestore = append(s.onRestore, fn) }
}

// NewService creates a backup service. A nil now uses time.Now.
func NewService(docs docstore.Store, objects gcs.ObjectStore, now func() time.Time, opts ...Option) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{docs: docs, objects: objects, now: now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func userPrefix(userID string) string {
	return path.Join(objectPrefix, userID) + "/"
}

// Take reads userID's documents into a snapshot.
func (s *Service) Take(ctx context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("Backup: user id is required")
	}
	snap := &Snapshot{
		Version:     SnapshotVersion,
		UserID:      userID,
		CreatedAt:   s.now().UTC(),
		Collections: make(map[string][]Entry, len(domain.UserCollections)),
	}

	for _, coll := range domain.UserCollections {
		docs, err := s.docs.Query(ctx, docstore.Owned(docstore.Query{Collection: coll}, userID))
		if err != nil {
			return nil, fmt.Errorf("Backup: query %s: %w", coll, err)
		}
		entries := make([]Entry, 0, len(docs))
		for _, d := range docs {
			entries = append(entries, Entry{ID: d.ID, Data: d.Data})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		snap.Collections[coll] = entries
	}

	profile, err := s.docs.Get(ctx, domain.CollUsers, userID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("Backup: get profile: %w", err)
	default:
		snap.Profile = pick(profile.Data, profileFields)
	}
	return snap, nil
}

// Backup writes a snapshot of userID and returns its gs:// URI.
func (s *Service) Backup(ctx context.Context, userID string) (string, error) {
	snap, err := s.Take(ctx, userID)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("Backup: encode snapshot: %w", err)
	}

	name := userPrefix(userID) + snap.CreatedAt.Format(nameLayout) + ".json"
	if err := s.objects.Put(ctx, name, "application/json", raw); err != nil {
		return "", fmt.Errorf("Backup: %w", err)
	}

	uri := s.objects.URI(name)
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("uri", uri).
		Int("bytes", len(raw)).
		Msg("Backup written")
	return uri, nil
}

// List returns the object names of userID's snapshots, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	names, err := s.objects.List(ctx, userPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("ListBackups: %w", err)
	}
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, ".json") {
			out = append(out, n)
		}
	}
	return out, nil
}

// Latest returns the object name of userID's newest snapshot.
func (s *Service) Latest(ctx context.Context, userID string) (string, error) {
	names, err := s.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("LatestBackup %s: %w", userID, ErrNoBackups)
	}
	return names[len(names)-1], nil
}

// Load reads and checks a snapshot. ref may be an object name or a gs:// URI.
func (s *Service) Load(ctx context.Context, ref string) (*Snapshot, error) {
	name := ref
	if strings.HasPrefix(ref, "gs://") {
		_, object, err := gcs.ParseURI(ref)
		if err != nil {
			return nil, fmt.Errorf("LoadBackup: %w", err)
		}
		name = object
	}
	raw, err := s.objects.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("LoadBackup: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("LoadBackup: decode %s: %w", name, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("LoadBackup: unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// Restore replaces userID's documents with the snapshot at ref. Documents
// created after the snapshot are deleted. All writes go in one batch. A
// snapshot taken for another user is rejected.
func (s *Service) Restore(ctx context.Context, userID, ref string) (*Snapshot, error) {
	snap, err := s.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if snap.UserID != userID {
		return nil, fmt.Errorf("Restore: snapshot belongs to another user")
	}

	batch := s.docs.Batch()
	for _, coll := range domain.UserCollections {
		current, err := s.docs.Query(ctx, docstore.Owned(docstore.Query{Collection: coll}, userID))
		if err != nil {
			return nil, fmt.Errorf("Restore: query %s: %w", coll, err)
		}
		keep := make(map[string]bool, len(snap.Collections[coll]))
		for _, e := range snap.Collections[coll] {
			keep[e.ID] = true
		}
		for _, d := range current {
			if !keep[d.ID] {
				batch.Delete(coll, d.ID)
			}
		}
		for _, e := range snap.Collections[coll] {
			data := docstore.Clone(e.Data)
			data[docstore.OwnerField] = userID
			batch.Set(coll, e.ID, data, false)
		}
	}
	if len(snap.Profile) > 0 {
		batch.Set(domain.CollUsers, userID, pick(snap.Profile, profileFields), true)
	}

	if err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("Restore: commit: %w", err)
	}
	for _, fn := range s.onRestore {
		fn(ctx, userID)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Interface("counts", snap.Counts()).
		Msg("Backup restored")
	return snap, nil
}

func pick(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
