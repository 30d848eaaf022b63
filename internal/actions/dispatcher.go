package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vidfriends/vidfeed/internal/auth"
	"github.com/vidfriends/vidfeed/internal/feedstore"
	"github.com/vidfriends/vidfeed/internal/logging"
	"github.com/vidfriends/vidfeed/internal/media"
	"github.com/vidfriends/vidfeed/internal/models"
)

// Feed is the view of the feed cache the dispatcher reads and refreshes.
type Feed interface {
	Refresh(ctx context.Context) error
	Video(id int64) (models.Video, bool)
	IsLikedBy(v models.Video, userID int64) bool
}

// Encoder turns a selected file into a store payload.
type Encoder interface {
	Encode(ctx context.Context, f media.File) (string, error)
}

// Deps lists the collaborators of a Dispatcher. Store, Feed and Identity are
// required.
type Deps struct {
	Store    feedstore.Store
	Feed     Feed
	Identity auth.IdentityProvider
	Encoder  Encoder
	Drafts   *Drafts
	Notifier Notifier

	Sharer       Sharer
	Clipboard    Clipboard
	ShareBaseURL string
}

// Dispatcher runs user actions: validate, mutate the store, refresh the feed,
// then report the outcome. It never edits the feed cache directly.
type Dispatcher struct {
	store    feedstore.Store
	feed     Feed
	identity auth.IdentityProvider
	encoder  Encoder
	drafts   *Drafts
	notifier Notifier

	sharer    Sharer
	clipboard Clipboard
	shareBase string
}

// New validates deps and fills optional collaborators with defaults.
func New(deps Deps) (*Dispatcher, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case deps.Feed == nil:
		return nil, fmt.Errorf("%w: feed", ErrMissingDependency)
	case deps.Identity == nil:
		return nil, fmt.Errorf("%w: identity", ErrMissingDependency)
	}

	d := &Dispatcher{
		store:     deps.Store,
		feed:      deps.Feed,
		identity:  deps.Identity,
		encoder:   deps.Encoder,
		drafts:    deps.Drafts,
		notifier:  deps.Notifier,
		sharer:    deps.Sharer,
		clipboard: deps.Clipboard,
		shareBase: deps.ShareBaseURL,
	}
	if d.encoder == nil {
		d.encoder = media.NewEncoder(nil)
	}
	if d.drafts == nil {
		d.drafts = NewDrafts()
	}
	if d.notifier == nil {
		d.notifier = nopNotifier{}
	}
	return d, nil
}

// Drafts exposes the draft state the presentation layer edits.
func (d *Dispatcher) Drafts() *Drafts {
	return d.drafts
}

// ToggleLike likes the video when the acting user has not liked it yet and
// unlikes it otherwise. Membership is read from the cache; the refresh that
// follows reconciles any concurrent change made elsewhere.
func (d *Dispatcher) ToggleLike(ctx context.Context, videoID int64) (err error) {
	ctx, done := d.begin(ctx, "like", slog.Int64("video_id", videoID))
	defer func() { done(err, "") }()

	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}
	video, ok := d.feed.Video(videoID)
	if !ok {
		return ErrUnknownVideo
	}

	if d.feed.IsLikedBy(video, user.ID) {
		err = d.store.Unlike(ctx, videoID, user.ID)
	} else {
		err = d.store.Like(ctx, videoID, user.ID)
	}
	if err != nil {
		return fmt.Errorf("toggle like on video %d: %w", videoID, err)
	}
	return d.refresh(ctx)
}

// PostComment submits the comment draft of videoID.
func (d *Dispatcher) PostComment(ctx context.Context, videoID int64) (err error) {
	ctx, done := d.begin(ctx, "comment", slog.Int64("video_id", videoID))
	defer func() { done(err, "Комментарий добавлен") }()

	text := strings.TrimSpace(d.drafts.Comment(videoID))
	if text == "" {
		return ErrEmptyComment
	}
	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}

	if _, err := d.store.AddComment(ctx, videoID, user.ID, text); err != nil {
		return fmt.Errorf("post comment on video %d: %w", videoID, err)
	}
	d.drafts.ClearComment(videoID)
	return d.refresh(ctx)
}

// CreateVideo uploads video with the title draft. The thumbnail is optional.
// Both files are encoded concurrently.
func (d *Dispatcher) CreateVideo(ctx context.Context, video, thumbnail media.File) (err error) {
	ctx, done := d.begin(ctx, "upload")
	defer func() { done(err, "Видео опубликовано") }()

	title := strings.TrimSpace(d.drafts.Title())
	if title == "" {
		return ErrEmptyTitle
	}
	if video == nil {
		return ErrNoFile
	}
	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}

	var videoURL, thumbnailURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, err := d.encoder.Encode(gctx, video)
		if err != nil {
			return fmt.Errorf("encode video: %w", err)
		}
		videoURL = payload
		return nil
	})
	if thumbnail != nil {
		g.Go(func() error {
			payload, err := d.encoder.Encode(gctx, thumbnail)
			if err != nil {
				return fmt.Errorf("encode thumbnail: %w", err)
			}
			thumbnailURL = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	created, err := d.store.CreateVideo(ctx, models.NewVideo{
		Title:        title,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		UserID:       user.ID,
	})
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	logging.FromContext(ctx).Info("video created", slog.Int64("video_id", created.ID))

	d.drafts.SetTitle("")
	d.drafts.CloseUpload()
	return d.refresh(ctx)
}

// UpdateThumbnail replaces the thumbnail of the video selected with
// Drafts.SetThumbnailTarget. Only the owner may replace it.
func (d *Dispatcher) UpdateThumbnail(ctx context.Context, file media.File) (err error) {
	ctx, done := d.begin(ctx, "thumbnail")
	defer func() { done(err, "Обложка обновлена") }()

	videoID, ok := d.drafts.ThumbnailTarget()
	if !ok {
		return ErrNoThumbnailTarget
	}
	if file == nil {
		return ErrNoFile
	}
	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}
	video, ok := d.feed.Video(videoID)
	if !ok {
		return ErrUnknownVideo
	}
	if video.UserID != user.ID {
		return ErrNotOwner
	}

	payload, err := d.encoder.Encode(ctx, file)
	if err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := d.store.UpdateVideoThumbnail(ctx, videoID, user.ID, payload); err != nil {
		return fmt.Errorf("update thumbnail of video %d: %w", videoID, err)
	}
	d.drafts.ClearThumbnailTarget()
	return d.refresh(ctx)
}

// UpdateAvatar uploads a new avatar and applies it to the acting user right
// away. The feed is not refreshed.
func (d *Dispatcher) UpdateAvatar(ctx context.Context, file media.File) (err error) {
	ctx, done := d.begin(ctx, "avatar")
	defer func() { done(err, "Аватар обновлён") }()

	if file == nil {
		return ErrNoFile
	}
	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}

	payload, err := d.encoder.Encode(ctx, file)
	if err != nil {
		return fmt.Errorf("encode avatar: %w", err)
	}
	ref, err := d.store.UpdateUserAvatar(ctx, user.ID, payload)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	d.identity.SetAvatar(ref)
	return nil
}

// Share hands the canonical link of videoID to the native share sheet, or
// copies it to the clipboard when there is none.
func (d *Dispatcher) Share(ctx context.Context, videoID int64) (err error) {
	ctx, done := d.begin(ctx, "share", slog.Int64("video_id", videoID))

	link := ShareLink(d.shareBase, videoID)
	message := "Ссылка скопирована"
	defer func() { done(err, message) }()

	switch {
	case d.sharer != nil:
		message = ""
		if err := d.sharer.Share(ctx, link); err != nil {
			return fmt.Errorf("%w: %w", ErrShareFailed, err)
		}
	case d.clipboard != nil:
		if err := d.clipboard.WriteText(ctx, link); err != nil {
			return fmt.Errorf("%w: %w", ErrShareFailed, err)
		}
	default:
		return fmt.Errorf("%w: no share target available", ErrShareFailed)
	}
	return nil
}

// begin opens a span for action and returns the matching completion hook,
// which ends the span and reports the outcome. An empty success message
// suppresses the success notice.
func (d *Dispatcher) begin(ctx context.Context, action string, attrs ...slog.Attr) (context.Context, func(error, string)) {
	ctx, span := logging.StartSpan(ctx, "actions."+action, attrs...)
	return ctx, func(err error, success string) {
		span.Fail(err)
		span.End()

		switch {
		case errors.Is(err, ErrEmptyComment):
		case err != nil:
			d.notifier.Notify(ctx, Notice{Action: action, Level: LevelError, Message: describe(err), Err: err})
		case success != "":
			d.notifier.Notify(ctx, Notice{Action: action, Level: LevelInfo, Message: success})
		}
	}
}

func (d *Dispatcher) currentUser(ctx context.Context) (models.User, error) {
	user, err := d.identity.Current(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("resolve current user: %w", err)
	}
	return user, nil
}

func (d *Dispatcher) refresh(ctx context.Context) error {
	if err := d.feed.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh after action: %w", err)
	}
	return nil
}

// describe maps an action error to the message shown to the user.
func describe(err error) string {
	var (
		validation *ValidationError
		read       *media.ReadError
		transport  *feedstore.TransportError
	)
	switch {
	case errors.As(err, &validation):
		return "Проверьте введённые данные"
	case errors.Is(err, media.ErrTooLarge):
		return "Файл слишком большой"
	case errors.As(err, &read):
		return "Не удалось прочитать файл"
	case errors.Is(err, ErrShareFailed):
		return "Не удалось поделиться"
	case errors.As(err, &transport):
		return "Сервер недоступен, попробуйте ещё раз"
	default:
		return "Что-то пошло не так"
	}
}
