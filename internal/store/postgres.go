package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/db"
	"github.com/civicsignal/civicsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS measures (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	title         TEXT NOT NULL,
	level         TEXT NOT NULL,
	jurisdiction  TEXT NOT NULL,
	body          TEXT NOT NULL DEFAULT '',
	division_id   TEXT,
	status        TEXT NOT NULL DEFAULT 'unknown',
	introduced_at TIMESTAMPTZ,
	scheduled_for TIMESTAMPTZ,
	topic_tags    JSONB NOT NULL DEFAULT '[]',
	summary_short TEXT NOT NULL DEFAULT '',
	summary_long  TEXT NOT NULL DEFAULT '',
	canonical_key TEXT NOT NULL DEFAULT '',
	source_url    TEXT NOT NULL DEFAULT '',
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_measures_canonical_key ON measures(canonical_key) WHERE canonical_key <> '';
CREATE INDEX IF NOT EXISTS idx_measures_jurisdiction ON measures(jurisdiction);

CREATE TABLE IF NOT EXISTS measure_sources (
	id         TEXT PRIMARY KEY,
	measure_id TEXT NOT NULL REFERENCES measures(id),
	label      TEXT NOT NULL,
	url        TEXT NOT NULL,
	ctype      TEXT NOT NULL,
	is_primary BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_measure_sources_measure ON measure_sources(measure_id);

CREATE TABLE IF NOT EXISTS measure_status_events (
	id           TEXT PRIMARY KEY,
	measure_id   TEXT NOT NULL REFERENCES measures(id),
	status       TEXT NOT NULL,
	effective_at TIMESTAMPTZ NOT NULL,
	source_url   TEXT NOT NULL DEFAULT '',
	raw_ref      TEXT NOT NULL DEFAULT '',
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_status_events_measure ON measure_status_events(measure_id, recorded_at);

CREATE TABLE IF NOT EXISTS officials (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	office         TEXT NOT NULL DEFAULT '',
	party          TEXT NOT NULL DEFAULT '',
	chamber        TEXT NOT NULL DEFAULT '',
	district_label TEXT NOT NULL DEFAULT '',
	bioguide_id    TEXT NOT NULL DEFAULT '',
	lis_member_id  TEXT NOT NULL DEFAULT '',
	openstates_id  TEXT NOT NULL DEFAULT '',
	legistar_id    TEXT NOT NULL DEFAULT '',
	needs_review   BOOLEAN NOT NULL DEFAULT false,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_officials_bioguide ON officials(bioguide_id) WHERE bioguide_id <> '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_officials_lis ON officials(lis_member_id) WHERE lis_member_id <> '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_officials_openstates ON officials(openstates_id) WHERE openstates_id <> '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_officials_legistar ON officials(legistar_id) WHERE legistar_id <> '';

CREATE TABLE IF NOT EXISTS vote_events (
	id            TEXT PRIMARY KEY,
	measure_id    TEXT NOT NULL REFERENCES measures(id),
	body          TEXT NOT NULL,
	external_id   TEXT,
	scheduled_for TIMESTAMPTZ,
	held_at       TIMESTAMPTZ,
	result        TEXT NOT NULL DEFAULT 'unknown',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vote_events_external ON vote_events(external_id) WHERE external_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_vote_events_natural ON vote_events(measure_id, body, COALESCE(held_at, 'epoch'::timestamptz));

CREATE TABLE IF NOT EXISTS official_votes (
	vote_event_id TEXT NOT NULL REFERENCES vote_events(id),
	official_id   TEXT NOT NULL REFERENCES officials(id),
	position      TEXT NOT NULL,
	PRIMARY KEY (vote_event_id, official_id)
);

CREATE TABLE IF NOT EXISTS user_votes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	measure_id TEXT NOT NULL REFERENCES measures(id),
	value      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, measure_id)
);

CREATE INDEX IF NOT EXISTS idx_user_votes_measure ON user_votes(measure_id);

CREATE TABLE IF NOT EXISTS user_officials (
	user_id     TEXT NOT NULL,
	official_id TEXT NOT NULL REFERENCES officials(id),
	division_id TEXT NOT NULL DEFAULT '',
	office      TEXT NOT NULL DEFAULT '',
	snapshot_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, official_id)
);

CREATE TABLE IF NOT EXISTS match_results (
	user_id     TEXT NOT NULL,
	measure_id  TEXT NOT NULL REFERENCES measures(id),
	score       DOUBLE PRECISION,
	breakdown   JSONB NOT NULL DEFAULT '{}',
	computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, measure_id)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id          TEXT PRIMARY KEY,
	connector   TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       JSONB NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_connector ON ingestion_runs(connector, started_at DESC);

CREATE TABLE IF NOT EXISTS raw_artifacts (
	id         TEXT PRIMARY KEY,
	connector  TEXT NOT NULL,
	measure_id TEXT,
	url        TEXT NOT NULL DEFAULT '',
	ctype      TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	blob_ref   TEXT NOT NULL,
	sha256     TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS connector_cursors (
	connector  TEXT PRIMARY KEY,
	cursor     BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recompute_queue (
	id          TEXT PRIMARY KEY,
	measure_id  TEXT NOT NULL REFERENCES measures(id),
	enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at  TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recompute_pending ON recompute_queue(measure_id) WHERE started_at IS NULL;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const measureColumns = `id, source, external_id, title, level, jurisdiction, body, division_id, status, introduced_at, scheduled_for, topic_tags, summary_short, summary_long, canonical_key, source_url, updated_at`

func scanMeasure(row pgx.Row) (*model.Measure, error) {
	var m model.Measure
	var tagsJSON []byte
	err := row.Scan(&m.ID, &m.Source, &m.ExternalID, &m.Title, &m.Level, &m.Jurisdiction,
		&m.Body, &m.DivisionID, &m.Status, &m.IntroducedAt, &m.ScheduledFor, &tagsJSON,
		&m.SummaryShort, &m.SummaryLong, &m.CanonicalKey, &m.SourceURL, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsJSON, &m.TopicTags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal topic tags")
	}
	return &m, nil
}

// UpsertMeasure inserts or updates a measure under its (source, external_id)
// natural key. Status moves only forward: a regression reported by a source
// is dropped (logged) while descriptive fields still update. Every accepted
// status change appends a status event in the same transaction.
func (s *PostgresStore) UpsertMeasure(ctx context.Context, m *model.Measure) (UpsertOutcome, error) {
	now := time.Now().UTC()
	if m.Status == "" {
		m.Status = model.StatusUnknown
	}
	tagsJSON, err := json.Marshal(m.TopicTags)
	if err != nil {
		return OutcomeUnchanged, eris.Wrap(err, "postgres: marshal topic tags")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return OutcomeUnchanged, eris.Wrap(err, "postgres: begin upsert measure")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := scanMeasure(tx.QueryRow(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE source = $1 AND external_id = $2 FOR UPDATE`,
		string(m.Source), m.ExternalID,
	))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return OutcomeUnchanged, eris.Wrap(err, "postgres: lookup measure")
	}

	if existing == nil {
		m.ID = uuid.New().String()
		m.UpdatedAt = now
		_, err = tx.Exec(ctx,
			`INSERT INTO measures (id, source, external_id, title, level, jurisdiction, body, division_id, status, introduced_at, scheduled_for, topic_tags, summary_short, summary_long, canonical_key, source_url, first_seen_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			m.ID, string(m.Source), m.ExternalID, m.Title, string(m.Level), m.Jurisdiction,
			m.Body, m.DivisionID, string(m.Status), m.IntroducedAt, m.ScheduledFor, tagsJSON,
			m.SummaryShort, m.SummaryLong, m.CanonicalKey, m.SourceURL, now, now,
		)
		if err != nil {
			return OutcomeUnchanged, eris.Wrap(err, "postgres: insert measure")
		}
		if m.Status != model.StatusUnknown {
			if err := appendStatusEventTx(ctx, tx, m.ID, m.Status, now, m.SourceURL, ""); err != nil {
				return OutcomeUnchanged, err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return OutcomeUnchanged, eris.Wrap(err, "postgres: commit insert measure")
		}
		return OutcomeCreated, nil
	}

	m.ID = existing.ID
	newStatus := m.Status
	if !existing.Status.CanAdvanceTo(newStatus) {
		zap.L().Warn("dropping status regression",
			zap.String("measure_id", existing.ID),
			zap.String("current", string(existing.Status)),
			zap.String("reported", string(newStatus)),
		)
		newStatus = existing.Status
	}
	if newStatus == model.StatusUnknown && existing.Status != model.StatusUnknown {
		// A source that lost track of the measure never erases known state.
		newStatus = existing.Status
	}
	statusChanged := newStatus != existing.Status
	m.Status = newStatus

	if !statusChanged && !measureFieldsChanged(existing, m) {
		if err := tx.Commit(ctx); err != nil {
			return OutcomeUnchanged, eris.Wrap(err, "postgres: commit noop measure")
		}
		return OutcomeUnchanged, nil
	}

	m.UpdatedAt = now
	_, err = tx.Exec(ctx,
		`UPDATE measures SET title = $1, level = $2, jurisdiction = $3, body = $4, division_id = $5,
		 status = $6, introduced_at = $7, scheduled_for = $8, topic_tags = $9, summary_short = $10,
		 summary_long = $11, canonical_key = $12, source_url = $13, updated_at = $14
		 WHERE id = $15`,
		m.Title, string(m.Level), m.Jurisdiction, m.Body, m.DivisionID,
		string(m.Status), m.IntroducedAt, m.ScheduledFor, tagsJSON, m.SummaryShort,
		m.SummaryLong, m.CanonicalKey, m.SourceURL, now, m.ID,
	)
	if err != nil {
		return OutcomeUnchanged, eris.Wrap(err, "postgres: update measure")
	}
	if statusChanged {
		if err := appendStatusEventTx(ctx, tx, m.ID, m.Status, now, m.SourceURL, ""); err != nil {
			return OutcomeUnchanged, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return OutcomeUnchanged, eris.Wrap(err, "postgres: commit update measure")
	}
	return OutcomeUpdated, nil
}

func measureFieldsChanged(a, b *model.Measure) bool {
	if a.Title != b.Title || a.Level != b.Level || a.Jurisdiction != b.Jurisdiction ||
		a.Body != b.Body || a.SummaryShort != b.SummaryShort || a.SummaryLong != b.SummaryLong ||
		a.CanonicalKey != b.CanonicalKey || a.SourceURL != b.SourceURL {
		return true
	}
	if !timePtrEqual(a.IntroducedAt, b.IntroducedAt) || !timePtrEqual(a.ScheduledFor, b.ScheduledFor) {
		return true
	}
	if !strPtrEqual(a.DivisionID, b.DivisionID) {
		return true
	}
	if len(a.TopicTags) != len(b.TopicTags) {
		return true
	}
	for i := range a.TopicTags {
		if a.TopicTags[i] != b.TopicTags[i] {
			return true
		}
	}
	return false
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func appendStatusEventTx(ctx context.Context, tx pgx.Tx, measureID string, status model.MeasureStatus, effectiveAt time.Time, sourceURL, rawRef string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO measure_status_events (id, measure_id, status, effective_at, source_url, raw_ref) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), measureID, string(status), effectiveAt, sourceURL, rawRef,
	)
	return eris.Wrap(err, "postgres: append status event")
}

func (s *PostgresStore) GetMeasure(ctx context.Context, source model.SourceSystem, externalID string) (*model.Measure, error) {
	m, err := scanMeasure(s.pool.QueryRow(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE source = $1 AND external_id = $2`,
		string(source), externalID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get measure")
	}
	return m, nil
}

func (s *PostgresStore) GetMeasureByID(ctx context.Context, id string) (*model.Measure, error) {
	m, err := scanMeasure(s.pool.QueryRow(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get measure %s", id)
	}
	return m, nil
}

func (s *PostgresStore) ListMeasuresByJurisdiction(ctx context.Context, jurisdiction string) ([]model.Measure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE jurisdiction = $1 ORDER BY updated_at DESC`,
		jurisdiction,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list measures")
	}
	defer rows.Close()

	var measures []model.Measure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan measure")
		}
		measures = append(measures, *m)
	}
	return measures, eris.Wrap(rows.Err(), "postgres: list measures iterate")
}

// CorrectMeasureStatus is the explicit operator correction path. It bypasses
// the monotonic guard; the correction still lands in the status history.
func (s *PostgresStore) CorrectMeasureStatus(ctx context.Context, measureID string, status model.MeasureStatus, sourceURL string) error {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin correct status")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE measures SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), now, measureID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: correct status %s", measureID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("measure not found: %s", measureID)
	}
	if err := appendStatusEventTx(ctx, tx, measureID, status, now, sourceURL, ""); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit correct status")
}

func (s *PostgresStore) ReplaceMeasureSources(ctx context.Context, measureID string, sources []model.MeasureSource) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace sources")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM measure_sources WHERE measure_id = $1`, measureID); err != nil {
		return eris.Wrap(err, "postgres: delete measure sources")
	}
	for _, src := range sources {
		id := src.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO measure_sources (id, measure_id, label, url, ctype, is_primary) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, measureID, src.Label, src.URL, string(src.CType), src.IsPrimary,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert measure source")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace sources")
}

func (s *PostgresStore) AppendStatusEvent(ctx context.Context, ev *model.StatusEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO measure_status_events (id, measure_id, status, effective_at, source_url, raw_ref) VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.MeasureID, string(ev.Status), ev.EffectiveAt, ev.SourceURL, ev.RawRef,
	)
	return eris.Wrap(err, "postgres: append status event")
}

func (s *PostgresStore) ListStatusEvents(ctx context.Context, measureID string) ([]model.StatusEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, measure_id, status, effective_at, source_url, raw_ref FROM measure_status_events
		 WHERE measure_id = $1 ORDER BY recorded_at ASC`,
		measureID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list status events")
	}
	defer rows.Close()

	var events []model.StatusEvent
	for rows.Next() {
		var ev model.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.MeasureID, &ev.Status, &ev.EffectiveAt, &ev.SourceURL, &ev.RawRef); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list status events iterate")
}

// UpsertVoteEvent inserts or updates a vote event, preferring the source
// external id as the conflict key and falling back to the
// (measure, body, held_at) natural key for sources without one.
func (s *PostgresStore) UpsertVoteEvent(ctx context.Context, ev *model.VoteEvent) (string, error) {
	now := time.Now().UTC()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Result == "" {
		ev.Result = model.ResultUnknown
	}

	var id string
	var err error
	if ev.ExternalID != nil && *ev.ExternalID != "" {
		err = s.pool.QueryRow(ctx,
			`INSERT INTO vote_events (id, measure_id, body, external_id, scheduled_for, held_at, result, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (external_id) WHERE external_id IS NOT NULL
			 DO UPDATE SET scheduled_for = $5, held_at = $6, result = $7, updated_at = $8
			 RETURNING id`,
			ev.ID, ev.MeasureID, ev.Body, *ev.ExternalID, ev.ScheduledFor, ev.HeldAt, string(ev.Result), now,
		).Scan(&id)
	} else {
		if ev.HeldAt != nil {
			// The same decision may already be stored from a sweep that ran
			// before the date was published. Adopt that undated row instead
			// of inserting a dated sibling.
			err = s.pool.QueryRow(ctx,
				`UPDATE vote_events
				 SET scheduled_for = $3, held_at = $4, result = $5, updated_at = $6
				 WHERE measure_id = $1 AND body = $2 AND held_at IS NULL AND external_id IS NULL
				 RETURNING id`,
				ev.MeasureID, ev.Body, ev.ScheduledFor, ev.HeldAt, string(ev.Result), now,
			).Scan(&id)
			if err == nil {
				ev.ID = id
				return id, nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return "", eris.Wrapf(err, "postgres: upsert vote event for measure %s", ev.MeasureID)
			}
		}
		err = s.pool.QueryRow(ctx,
			`INSERT INTO vote_events (id, measure_id, body, scheduled_for, held_at, result, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (measure_id, body, COALESCE(held_at, 'epoch'::timestamptz))
			 DO UPDATE SET scheduled_for = $4, result = $6, updated_at = $7
			 RETURNING id`,
			ev.ID, ev.MeasureID, ev.Body, ev.ScheduledFor, ev.HeldAt, string(ev.Result), now,
		).Scan(&id)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert vote event for measure %s", ev.MeasureID)
	}
	ev.ID = id
	return id, nil
}

// UpsertOfficialVote records a position, returning true when the row was
// created or the position changed.
func (s *PostgresStore) UpsertOfficialVote(ctx context.Context, v *model.OfficialVote) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO official_votes (vote_event_id, official_id, position) VALUES ($1, $2, $3)
		 ON CONFLICT (vote_event_id, official_id) DO UPDATE SET position = EXCLUDED.position
		 WHERE official_votes.position IS DISTINCT FROM EXCLUDED.position`,
		v.VoteEventID, v.OfficialID, string(v.Position),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: upsert official vote")
	}
	return tag.RowsAffected() > 0, nil
}

// ListOfficialVotes returns all recorded positions for a measure, grouped by
// official id.
func (s *PostgresStore) ListOfficialVotes(ctx context.Context, measureID string) (map[string][]model.OfficialVote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ov.vote_event_id, ov.official_id, ov.position
		 FROM official_votes ov
		 JOIN vote_events ve ON ve.id = ov.vote_event_id
		 WHERE ve.measure_id = $1
		 ORDER BY ve.held_at ASC NULLS LAST`,
		measureID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list official votes")
	}
	defer rows.Close()

	votes := make(map[string][]model.OfficialVote)
	for rows.Next() {
		var v model.OfficialVote
		if err := rows.Scan(&v.VoteEventID, &v.OfficialID, &v.Position); err != nil {
			return nil, eris.Wrap(err, "postgres: scan official vote")
		}
		votes[v.OfficialID] = append(votes[v.OfficialID], v)
	}
	return votes, eris.Wrap(rows.Err(), "postgres: list official votes iterate")
}

const officialColumns = `id, name, office, party, chamber, district_label, bioguide_id, lis_member_id, openstates_id, legistar_id, needs_review, updated_at`

func scanOfficial(row pgx.Row) (*model.Official, error) {
	var o model.Official
	err := row.Scan(&o.ID, &o.Name, &o.Office, &o.Party, &o.Chamber, &o.DistrictLabel,
		&o.BioguideID, &o.LISMemberID, &o.OpenStatesID, &o.LegistarID, &o.NeedsReview, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

var schemeColumns = map[model.IdentifierScheme]string{
	model.SchemeBioguide:   "bioguide_id",
	model.SchemeLISMember:  "lis_member_id",
	model.SchemeOpenStates: "openstates_id",
	model.SchemeLegistar:   "legistar_id",
}

func (s *PostgresStore) FindOfficialByIdentifier(ctx context.Context, scheme model.IdentifierScheme, externalID string) (*model.Official, error) {
	col, ok := schemeColumns[scheme]
	if !ok {
		return nil, eris.Errorf("postgres: unknown identifier scheme %q", scheme)
	}
	o, err := scanOfficial(s.pool.QueryRow(ctx,
		`SELECT `+officialColumns+` FROM officials WHERE `+col+` = $1`,
		externalID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find official by %s", scheme)
	}
	return o, nil
}

// FindOfficialByNameChamber is the deterministic fallback key: lowercased
// family name plus chamber, optionally narrowed by district label (the state
// for senators). Callers decide what multiple hits mean.
func (s *PostgresStore) FindOfficialByNameChamber(ctx context.Context, lastName, chamber, districtLabel string) ([]model.Official, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+officialColumns+` FROM officials
		 WHERE chamber = $2 AND ($3 = '' OR district_label = $3)
		   AND lower(name) LIKE '%' || lower($1) || '%'`,
		lastName, chamber, districtLabel,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find official by name")
	}
	defer rows.Close()

	var officials []model.Official
	for rows.Next() {
		o, err := scanOfficial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan official")
		}
		officials = append(officials, *o)
	}
	return officials, eris.Wrap(rows.Err(), "postgres: find official by name iterate")
}

func (s *PostgresStore) InsertOfficial(ctx context.Context, o *model.Official) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO officials (id, name, office, party, chamber, district_label, bioguide_id, lis_member_id, openstates_id, legistar_id, needs_review, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.Name, o.Office, o.Party, o.Chamber, o.DistrictLabel,
		o.BioguideID, o.LISMemberID, o.OpenStatesID, o.LegistarID, o.NeedsReview, o.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert official %s", o.Name)
}

// UpdateOfficialIdentifier backfills a source-native id learned after the
// official row was created (e.g. the Senate name+state fallback learning the
// LIS member id).
func (s *PostgresStore) UpdateOfficialIdentifier(ctx context.Context, officialID string, scheme model.IdentifierScheme, externalID string) error {
	col, ok := schemeColumns[scheme]
	if !ok {
		return eris.Errorf("postgres: unknown identifier scheme %q", scheme)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE officials SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		externalID, time.Now().UTC(), officialID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update official identifier %s", officialID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("official not found: %s", officialID)
	}
	return nil
}

func (s *PostgresStore) GetOfficials(ctx context.Context, ids []string) ([]model.Official, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+officialColumns+` FROM officials WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get officials")
	}
	defer rows.Close()

	var officials []model.Official
	for rows.Next() {
		o, err := scanOfficial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan official")
		}
		officials = append(officials, *o)
	}
	return officials, eris.Wrap(rows.Err(), "postgres: get officials iterate")
}

func (s *PostgresStore) FindOfficialsByName(ctx context.Context, name string) ([]model.Official, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+officialColumns+` FROM officials WHERE lower(name) = lower($1)`,
		name,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find officials by name")
	}
	defer rows.Close()

	var officials []model.Official
	for rows.Next() {
		o, err := scanOfficial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan official")
		}
		officials = append(officials, *o)
	}
	return officials, eris.Wrap(rows.Err(), "postgres: find officials by name iterate")
}

// ReplaceUserOfficials swaps a user's representative snapshot atomically.
func (s *PostgresStore) ReplaceUserOfficials(ctx context.Context, userID string, officials []model.UserOfficial) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace user officials")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM user_officials WHERE user_id = $1`, userID); err != nil {
		return eris.Wrap(err, "postgres: delete user officials")
	}
	for _, uo := range officials {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_officials (user_id, official_id, division_id, office, snapshot_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, official_id) DO UPDATE SET division_id = $3, office = $4, snapshot_at = $5`,
			userID, uo.OfficialID, uo.DivisionID, uo.Office, uo.SnapshotAt,
		); err != nil {
			return eris.Wrap(err, "postgres: insert user official")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace user officials")
}

func (s *PostgresStore) ListUserOfficials(ctx context.Context, userID string) ([]model.UserOfficial, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, official_id, division_id, office, snapshot_at FROM user_officials WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list user officials")
	}
	defer rows.Close()

	var out []model.UserOfficial
	for rows.Next() {
		var uo model.UserOfficial
		if err := rows.Scan(&uo.UserID, &uo.OfficialID, &uo.DivisionID, &uo.Office, &uo.SnapshotAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user official")
		}
		out = append(out, uo)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list user officials iterate")
}

// UpsertUserVote records a user's position on a measure, superseding any
// earlier position in place. Returns true when the vote is new or changed.
func (s *PostgresStore) UpsertUserVote(ctx context.Context, v *model.UserVote) (bool, error) {
	now := time.Now().UTC()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_votes (id, user_id, measure_id, value, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (user_id, measure_id) DO UPDATE SET value = EXCLUDED.value, updated_at = $5
		 WHERE user_votes.value IS DISTINCT FROM EXCLUDED.value`,
		v.ID, v.UserID, v.MeasureID, string(v.Value), now,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: upsert user vote")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListUserVotes(ctx context.Context, measureID string) ([]model.UserVote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, measure_id, value, created_at FROM user_votes WHERE measure_id = $1`,
		measureID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list user votes")
	}
	defer rows.Close()

	var votes []model.UserVote
	for rows.Next() {
		var v model.UserVote
		if err := rows.Scan(&v.ID, &v.UserID, &v.MeasureID, &v.Value, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user vote")
		}
		votes = append(votes, v)
	}
	return votes, eris.Wrap(rows.Err(), "postgres: list user votes iterate")
}

// ReplaceMatchResults replaces all alignment rows for a measure inside one
// transaction, serialized per measure with an advisory lock so concurrent
// recomputes across measures never interleave on the same one.
func (s *PostgresStore) ReplaceMatchResults(ctx context.Context, measureID string, results []model.MatchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace match results")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey("measure:"+measureID)); err != nil {
		return eris.Wrap(err, "postgres: measure advisory lock")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM match_results WHERE measure_id = $1`, measureID); err != nil {
		return eris.Wrap(err, "postgres: delete match results")
	}
	for _, r := range results {
		breakdownJSON, err := json.Marshal(r.Breakdown)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal breakdown")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO match_results (user_id, measure_id, score, breakdown, computed_at) VALUES ($1, $2, $3, $4, $5)`,
			r.UserID, r.MeasureID, r.Score, breakdownJSON, r.ComputedAt,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert match result")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace match results")
}

func (s *PostgresStore) GetMatchResult(ctx context.Context, userID, measureID string) (*model.MatchResult, error) {
	var r model.MatchResult
	var breakdownJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, measure_id, score, breakdown, computed_at FROM match_results WHERE user_id = $1 AND measure_id = $2`,
		userID, measureID,
	).Scan(&r.UserID, &r.MeasureID, &r.Score, &breakdownJSON, &r.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get match result")
	}
	if err := json.Unmarshal(breakdownJSON, &r.Breakdown); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal breakdown")
	}
	return &r, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, connector string) (*model.IngestionRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (id, connector, started_at, status) VALUES ($1, $2, $3, $4)`,
		id, connector, now, string(model.RunStatusRunning),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start run %s", connector)
	}
	return &model.IngestionRun{
		ID:        id,
		Connector: connector,
		StartedAt: now,
		Status:    model.RunStatusRunning,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stats")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_runs SET finished_at = $1, status = $2, stats = $3, error = $4 WHERE id = $5`,
		time.Now().UTC(), string(status), statsJSON, runErr, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error) {
	query := `SELECT id, connector, started_at, finished_at, status, stats, error FROM ingestion_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Connector != "" {
		query += fmt.Sprintf(` AND connector = $%d`, argIdx)
		args = append(args, filter.Connector)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var r model.IngestionRun
		var statsJSON []byte
		if err := rows.Scan(&r.ID, &r.Connector, &r.StartedAt, &r.FinishedAt, &r.Status, &statsJSON, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run stats")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LastSuccessfulRun(ctx context.Context, connector string) (*time.Time, error) {
	var finished *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT max(finished_at) FROM ingestion_runs WHERE connector = $1 AND status = $2`,
		connector, string(model.RunStatusSucceeded),
	).Scan(&finished)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: last successful run %s", connector)
	}
	return finished, nil
}

// InsertArtifact records a fetched document, deduplicating on content hash.
// Returns the row id and whether a new row was created.
func (s *PostgresStore) InsertArtifact(ctx context.Context, a *model.RawArtifact) (string, bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO raw_artifacts (id, connector, measure_id, url, ctype, fetched_at, blob_ref, sha256)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (sha256) DO NOTHING`,
		a.ID, a.Connector, a.MeasureID, a.URL, string(a.CType), a.FetchedAt, a.BlobRef, a.SHA256,
	)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: insert artifact")
	}
	if tag.RowsAffected() > 0 {
		return a.ID, true, nil
	}
	existing, err := s.GetArtifactBySHA256(ctx, a.SHA256)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, eris.Errorf("postgres: artifact vanished after conflict: %s", a.SHA256)
	}
	a.ID = existing.ID
	return existing.ID, false, nil
}

func (s *PostgresStore) GetArtifactBySHA256(ctx context.Context, sha string) (*model.RawArtifact, error) {
	var a model.RawArtifact
	err := s.pool.QueryRow(ctx,
		`SELECT id, connector, measure_id, url, ctype, fetched_at, blob_ref, sha256 FROM raw_artifacts WHERE sha256 = $1`,
		sha,
	).Scan(&a.ID, &a.Connector, &a.MeasureID, &a.URL, &a.CType, &a.FetchedAt, &a.BlobRef, &a.SHA256)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get artifact")
	}
	return &a, nil
}

func (s *PostgresStore) SaveCursor(ctx context.Context, connector string, cursor []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO connector_cursors (connector, cursor, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (connector) DO UPDATE SET cursor = $2, updated_at = $3`,
		connector, cursor, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save cursor %s", connector)
}

func (s *PostgresStore) LoadCursor(ctx context.Context, connector string) ([]byte, error) {
	var cursor []byte
	err := s.pool.QueryRow(ctx,
		`SELECT cursor FROM connector_cursors WHERE connector = $1`,
		connector,
	).Scan(&cursor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: load cursor %s", connector)
	}
	return cursor, nil
}

// EnqueueRecompute adds a measure to the alignment work queue. A measure
// already pending is not enqueued twice.
func (s *PostgresStore) EnqueueRecompute(ctx context.Context, measureID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO recompute_queue (id, measure_id, enqueued_at) VALUES ($1, $2, $3)
		 ON CONFLICT (measure_id) WHERE started_at IS NULL DO NOTHING`,
		uuid.New().String(), measureID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: enqueue recompute %s", measureID)
}

// DequeueRecompute claims up to limit pending tasks. SKIP LOCKED keeps
// concurrent workers from claiming the same task.
func (s *PostgresStore) DequeueRecompute(ctx context.Context, limit int) ([]RecomputeTask, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`UPDATE recompute_queue SET started_at = now()
		 WHERE id IN (
			SELECT id FROM recompute_queue WHERE started_at IS NULL
			ORDER BY enqueued_at ASC LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, measure_id, enqueued_at`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue recompute")
	}
	defer rows.Close()

	var tasks []RecomputeTask
	for rows.Next() {
		var t RecomputeTask
		if err := rows.Scan(&t.ID, &t.MeasureID, &t.EnqueuedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recompute task")
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: dequeue recompute iterate")
}

func (s *PostgresStore) CompleteRecompute(ctx context.Context, taskID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM recompute_queue WHERE id = $1`, taskID)
	return eris.Wrapf(err, "postgres: complete recompute %s", taskID)
}

// TryConnectorLock takes the per-connector advisory lock without blocking.
// The lock is transaction-scoped and pinned to one pooled connection; the
// returned release func commits the holding transaction. acquired=false
// means another run of the same connector is in flight.
func (s *PostgresStore) TryConnectorLock(ctx context.Context, connector string) (func(), bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: begin connector lock %s", connector)
	}

	var locked bool
	if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockKey("connector:"+connector)).Scan(&locked); err != nil {
		_ = tx.Rollback(ctx)
		return nil, false, eris.Wrapf(err, "postgres: connector lock %s", connector)
	}
	if !locked {
		_ = tx.Rollback(ctx)
		return nil, false, nil
	}

	release := func() {
		if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
			zap.L().Warn("release connector lock", zap.String("connector", connector), zap.Error(err))
		}
	}
	return release, true, nil
}

// lockKey hashes a lock name into the int64 keyspace Postgres advisory locks
// use.
func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}
