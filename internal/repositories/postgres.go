package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidfriends/vidfeed/internal/db"
	"github.com/vidfriends/vidfeed/internal/models"
)

// mapWriteError translates constraint violations into repository errors.
func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Find fetches a user by id.
func (r *PostgresUserRepository) Find(ctx context.Context, id int64) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	err = conn.QueryRow(ctx, `
        SELECT id, name, avatar_url
        FROM users
        WHERE id = $1
    `, id).Scan(&user.ID, &user.Name, &user.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateAvatar replaces the avatar reference of a user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET avatar_url = $2 WHERE id = $1`, id, avatarURL)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// ListFeed returns every video, newest first, with its like set and its
// comments in chronological order. The three reads share one repeatable-read
// snapshot so a concurrent write never shows up in only part of the listing.
func (r *PostgresVideoRepository) ListFeed(ctx context.Context) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var videos []models.Video
	err = pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		videos, err = listFeed(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return videos, nil
}

// listFeed runs the feed queries on tx. Authors missing from users come back
// with an empty name rather than dropping their videos and comments.
func listFeed(ctx context.Context, tx pgx.Tx) ([]models.Video, error) {
	rows, err := tx.Query(ctx, `
        SELECT v.id, v.title, v.thumbnail_url, v.video_url, v.views, v.created_at,
               v.user_id, COALESCE(u.name, ''), COALESCE(u.avatar_url, '')
        FROM videos v
        LEFT JOIN users u ON u.id = v.user_id
        ORDER BY v.created_at DESC, v.id DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}

	videos := []models.Video{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			v         models.Video
			createdAt time.Time
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.ThumbnailURL, &v.VideoURL, &v.Views, &createdAt, &v.UserID, &v.Author, &v.AvatarURL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.CreatedAt = models.NewTimestamp(createdAt)
		v.LikedBy = []int64{}
		v.Comments = []models.Comment{}
		index[v.ID] = len(videos)
		videos = append(videos, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT video_id, user_id FROM likes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	for rows.Next() {
		var videoID, userID int64
		if err := rows.Scan(&videoID, &userID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan like: %w", err)
		}
		if i, ok := index[videoID]; ok {
			videos[i].LikedBy = append(videos[i].LikedBy, userID)
			videos[i].LikesCount++
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}

	rows, err = tx.Query(ctx, `
        SELECT c.id, c.video_id, c.text, c.created_at, c.user_id,
               COALESCE(u.name, ''), COALESCE(u.avatar_url, '')
        FROM comments c
        LEFT JOIN users u ON u.id = c.user_id
        ORDER BY c.created_at ASC, c.id ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c         models.Comment
			videoID   int64
			createdAt time.Time
		)
		if err := rows.Scan(&c.ID, &videoID, &c.Text, &createdAt, &c.UserID, &c.Author, &c.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = models.NewTimestamp(createdAt)
		if i, ok := index[videoID]; ok {
			videos[i].Comments = append(videos[i].Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return videos, nil
}

// Create stores a new video and returns it with its author resolved.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.NewVideo) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		created   models.Video
		createdAt time.Time
	)
	err = conn.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO videos (title, video_url, thumbnail_url, user_id)
            VALUES ($1, $2, $3, $4)
            RETURNING id, title, thumbnail_url, video_url, views, created_at, user_id
        )
        SELECT i.id, i.title, i.thumbnail_url, i.video_url, i.views, i.created_at,
               i.user_id, u.name, u.avatar_url
        FROM inserted i
        JOIN users u ON u.id = i.user_id
    `, video.Title, video.VideoURL, video.ThumbnailURL, video.UserID).Scan(
		&created.ID, &created.Title, &created.ThumbnailURL, &created.VideoURL, &created.Views, &createdAt,
		&created.UserID, &created.Author, &created.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, mapWriteError(err, "insert video")
	}

	created.CreatedAt = models.NewTimestamp(createdAt)
	created.LikedBy = []int64{}
	created.Comments = []models.Comment{}
	return created, nil
}

// UpdateThumbnail replaces the thumbnail of videoID when userID owns it.
func (r *PostgresVideoRepository) UpdateThumbnail(ctx context.Context, videoID, userID int64, thumbnailURL string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var owner int64
	if err := conn.QueryRow(ctx, `SELECT user_id FROM videos WHERE id = $1`, videoID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select video owner: %w", err)
	}
	if userID != 0 && owner != userID {
		return ErrForbidden
	}

	tag, err := conn.Exec(ctx, `UPDATE videos SET thumbnail_url = $2 WHERE id = $1`, videoID, thumbnailURL)
	if err != nil {
		return fmt.Errorf("update video thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresEngagementRepository provides PostgreSQL-backed persistence for
// likes and comments.
type PostgresEngagementRepository struct {
	pool db.Pool
}

// NewPostgresEngagementRepository constructs an engagement repository backed by PostgreSQL.
func NewPostgresEngagementRepository(pool db.Pool) *PostgresEngagementRepository {
	return &PostgresEngagementRepository{pool: pool}
}

// Like records that userID likes videoID and reports whether a like was
// added. Liking twice is not an error; the second call reports false.
func (r *PostgresEngagementRepository) Like(ctx context.Context, videoID, userID int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO likes (video_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (video_id, user_id) DO NOTHING
    `, videoID, userID)
	if err != nil {
		return false, mapWriteError(err, "insert like")
	}

	return tag.RowsAffected() > 0, nil
}

// Unlike removes the like of userID on videoID if there is one and reports
// whether it did.
func (r *PostgresEngagementRepository) Unlike(ctx context.Context, videoID, userID int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM likes WHERE video_id = $1 AND user_id = $2`, videoID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// AddComment stores a comment and returns it with its author resolved.
func (r *PostgresEngagementRepository) AddComment(ctx context.Context, videoID, userID int64, text string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		comment   models.Comment
		createdAt time.Time
	)
	err = conn.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO comments (video_id, user_id, text)
            VALUES ($1, $2, $3)
            RETURNING id, text, created_at, user_id
        )
        SELECT i.id, i.text, i.created_at, i.user_id, u.name, u.avatar_url
        FROM inserted i
        JOIN users u ON u.id = i.user_id
    `, videoID, userID, text).Scan(&comment.ID, &comment.Text, &createdAt, &comment.UserID, &comment.Author, &comment.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, mapWriteError(err, "insert comment")
	}

	comment.CreatedAt = models.NewTimestamp(createdAt)
	return comment, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ EngagementRepository = (*PostgresEngagementRepository)(nil)
