package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes snap in one transaction and sets snap.ID.
func (r *SnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO snapshots (taken_at, entity_count) VALUES ($1, $2) RETURNING id`,
		snap.TakenAt, snap.Entities,
	).Scan(&snap.ID); err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}

	rows := make([][]any, 0, len(snap.Components))
	for _, c := range snap.Components {
		props, err := json.Marshal(c.Properties)
		if err != nil {
			return fmt.Errorf("snapshot encode %s of entity %d: %w", c.Type, c.Entity, err)
		}
		rows = append(rows, []any{snap.ID, int64(c.Entity), c.Type, c.Enabled, props})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"snapshot_components"},
		[]string{"snapshot_id", "entity_id", "component_type", "enabled", "properties"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("snapshot components: %w", err)
	}

	batch := &pgx.Batch{}
	for _, o := range snap.Owners {
		batch.Queue(
			`INSERT INTO snapshot_owners (snapshot_id, entity_id, component_type, owner_entity_id, owner_type)
			 VALUES ($1, $2, $3, $4, $5)`,
			snap.ID, int64(o.Entity), o.Type, int64(o.OwnerEntity), o.OwnerType,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("snapshot owners: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	r.db.log.Debug("snapshot saved",
		zap.Int64("id", snap.ID),
		zap.Int("entities", snap.Entities),
		zap.Int("components", len(snap.Components)),
	)
	return nil
}

// Latest loads the most recent snapshot, or returns nil if there is none.
func (r *SnapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return r.Load(ctx, id)
}

// Load reads snapshot id with its component and owner rows. A missing id
// returns nil, nil.
func (r *SnapshotRepo) Load(ctx context.Context, id int64) (*Snapshot, error) {
	snap := &Snapshot{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, taken_at, entity_count FROM snapshots WHERE id = $1`, id,
	).Scan(&snap.ID, &snap.TakenAt, &snap.Entities)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, component_type, enabled, properties
		 FROM snapshot_components WHERE snapshot_id = $1
		 ORDER BY entity_id, component_type`, snap.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d components: %w", snap.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c      ComponentRow
			entity int64
			props  []byte
		)
		if err := rows.Scan(&entity, &c.Type, &c.Enabled, &props); err != nil {
			return nil, fmt.Errorf("snapshot %d components: %w", snap.ID, err)
		}
		if err := json.Unmarshal(props, &c.Properties); err != nil {
			return nil, fmt.Errorf("snapshot %d decode %s: %w", snap.ID, c.Type, err)
		}
		c.Entity = uint64(entity)
		snap.Components = append(snap.Components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot %d components: %w", snap.ID, err)
	}

	owners, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, component_type, owner_entity_id, owner_type
		 FROM snapshot_owners WHERE snapshot_id = $1
		 ORDER BY entity_id, component_type`, snap.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d owners: %w", snap.ID, err)
	}
	defer owners.Close()
	for owners.Next() {
		var (
			o             OwnerRow
			entity, owner int64
		)
		if err := owners.Scan(&entity, &o.Type, &owner, &o.OwnerType); err != nil {
			return nil, fmt.Errorf("snapshot %d owners: %w", snap.ID, err)
		}
		o.Entity, o.OwnerEntity = uint64(entity), uint64(owner)
		snap.Owners = append(snap.Owners, o)
	}
	if err := owners.Err(); err != nil {
		return nil, fmt.Errorf("snapshot %d owners: %w", snap.ID, err)
	}
	return snap, nil
}

// Prune deletes all but the newest keep snapshots.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT $1)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
