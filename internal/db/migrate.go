package db

import (
	"context"
	"fmt"
)

const createSchemaSQL = `CREATE SCHEMA IF NOT EXISTS news`

// Membership rows must disappear with their cluster so a window replace
// never leaves orphaned joins behind.
const postMigrateSQL = `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint WHERE conname = 'fk_cluster_memberships_cluster'
	) THEN
		ALTER TABLE news.cluster_memberships
			ADD CONSTRAINT fk_cluster_memberships_cluster
			FOREIGN KEY (cluster_id)
			REFERENCES news.story_clusters (cluster_id)
			ON DELETE CASCADE;
	END IF;
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint WHERE conname = 'uq_ranked_candidates_window_rank'
	) THEN
		ALTER TABLE news.ranked_candidates
			ADD CONSTRAINT uq_ranked_candidates_window_rank
			UNIQUE (window_date, rank) DEFERRABLE INITIALLY DEFERRED;
	END IF;
END
$$;
`

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.gdb.WithContext(ctx).Exec(createSchemaSQL).Error; err != nil {
		return fmt.Errorf("create news schema: %w", err)
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	if err := p.gdb.WithContext(ctx).Exec(postMigrateSQL).Error; err != nil {
		return fmt.Errorf("apply post-migrate constraints: %w", err)
	}

	return nil
}
