package db

import (
	"time"
)

// Source maps news.sources. Articles hold a back-reference only; the engine
// never mutates sources.
type Source struct {
	SourceID  int64     `gorm:"column:source_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null"`
	FeedURL   *string   `gorm:"column:feed_url;type:text"`
	Enabled   bool      `gorm:"column:enabled;type:boolean;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "news.sources" }

// Article maps news.articles. Rows are written by ingestion and are
// read-only for the clustering and ranking engine.
type Article struct {
	ArticleID   int64      `gorm:"column:article_id;primaryKey;autoIncrement"`
	Title       string     `gorm:"column:title;type:text;not null"`
	Snippet     *string    `gorm:"column:snippet;type:text"`
	Publisher   *string    `gorm:"column:publisher;type:text"`
	SourceID    *int64     `gorm:"column:source_id;type:bigint"`
	URL         *string    `gorm:"column:url;type:text"`
	Language    *string    `gorm:"column:language;type:text"`
	PublishedAt *time.Time `gorm:"column:published_at;type:timestamptz"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "news.articles" }

// StoryCluster maps news.story_clusters. A clustering run creates the rows
// for a window; a later ranking run overwrites their scores.
type StoryCluster struct {
	ClusterID  int64     `gorm:"column:cluster_id;primaryKey;autoIncrement"`
	WindowDate time.Time `gorm:"column:window_date;type:date;not null;index"`
	Label      *string   `gorm:"column:label;type:text"`
	Score      float64   `gorm:"column:score;type:double precision;not null;default:0"`
	Category   *string   `gorm:"column:category;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (StoryCluster) TableName() string { return "news.story_clusters" }

// ClusterMembership maps news.cluster_memberships, the many-to-many join
// between clusters and articles. Rows are deleted together with their cluster.
type ClusterMembership struct {
	ClusterID int64     `gorm:"column:cluster_id;type:bigint;primaryKey"`
	ArticleID int64     `gorm:"column:article_id;type:bigint;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ClusterMembership) TableName() string { return "news.cluster_memberships" }

// RankedCandidate maps news.ranked_candidates: an explicit, re-editable
// ordering of the top clusters for one window. Ranks are 1-based and dense.
type RankedCandidate struct {
	CandidateID int64     `gorm:"column:candidate_id;primaryKey;autoIncrement"`
	WindowDate  time.Time `gorm:"column:window_date;type:date;not null;index"`
	ClusterID   int64     `gorm:"column:cluster_id;type:bigint;not null"`
	Rank        int       `gorm:"column:rank;type:integer;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RankedCandidate) TableName() string { return "news.ranked_candidates" }

func autoMigrateModels() []any {
	return []any{
		&Source{},
		&Article{},
		&StoryCluster{},
		&ClusterMembership{},
		&RankedCandidate{},
	}
}
