package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vidfriends/vidfeed/internal/actions"
	"github.com/vidfriends/vidfeed/internal/auth"
	"github.com/vidfriends/vidfeed/internal/config"
	"github.com/vidfriends/vidfeed/internal/feed"
	"github.com/vidfriends/vidfeed/internal/feedstore"
	"github.com/vidfriends/vidfeed/internal/logging"
	"github.com/vidfriends/vidfeed/internal/media"
	"github.com/vidfriends/vidfeed/internal/models"
)

// session holds the client side components for one command invocation.
type session struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *feedstore.Client
	feed       *feed.Cache
	identity   *auth.StaticIdentity
	dispatcher *actions.Dispatcher
	out        io.Writer
	now        func() time.Time
}

type clientCommand func(ctx context.Context, s *session, flags *pflag.FlagSet) error

var clientCommands = map[string]clientCommand{
	"feed":      feedCommand,
	"like":      likeCommand,
	"comment":   commentCommand,
	"upload":    uploadCommand,
	"thumbnail": thumbnailCommand,
	"avatar":    avatarCommand,
	"share":     shareCommand,
}

func runClient(ctx context.Context, cfg config.Config, name string, command clientCommand, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	storeURL := flags.String("store", cfg.Client.StoreURL, "feed store endpoint")
	userID := flags.Int64("user", cfg.Client.UserID, "acting user id")
	flags.Int64("expand", 0, "show the comments of this video (feed)")
	flags.String("title", "", "title of the new video (upload)")
	flags.String("video", "", "video file to publish (upload)")
	flags.String("thumbnail", "", "thumbnail image for the new video (upload)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg.Client.StoreURL = *storeURL
	cfg.Client.UserID = *userID

	logger := newLogger(stderr, cfg.LogLevel)
	ctx = logging.WithLogger(ctx, logger)

	s, err := newSession(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	return command(ctx, s, flags)
}

func newSession(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) (*session, error) {
	store := feedstore.NewClient(cfg.Client.StoreURL).
		WithTimeout(cfg.Client.RequestTimeout).
		WithRateLimit(cfg.Client.Rate, cfg.Client.Burst).
		WithCompressionThreshold(cfg.Client.CompressThreshold).
		WithLogger(logger)

	identity, err := auth.Bootstrap(ctx, store, cfg.Client.UserID)
	if err != nil {
		if !feedstore.IsTransport(err) {
			return nil, err
		}
		logger.Warn("user profile unavailable, continuing with id only", "user_id", cfg.Client.UserID, "error", err)
		if identity, err = auth.NewStaticIdentity(models.User{ID: cfg.Client.UserID}); err != nil {
			return nil, err
		}
	}

	cache := feed.NewCache(store, logger)
	dispatcher, err := actions.New(actions.Deps{
		Store:        store,
		Feed:         cache,
		Identity:     identity,
		Encoder:      media.NewEncoder(logger),
		Notifier:     printNotifier{out: out},
		Clipboard:    &actions.WriterClipboard{W: out},
		ShareBaseURL: cfg.Client.ShareBaseURL,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		feed:       cache,
		identity:   identity,
		dispatcher: dispatcher,
		out:        out,
		now:        time.Now,
	}, nil
}

// printNotifier shows notices on the terminal and mirrors them to the log.
type printNotifier struct {
	out io.Writer
}

func (n printNotifier) Notify(ctx context.Context, notice actions.Notice) {
	actions.LogNotifier{}.Notify(ctx, notice)
	prefix := "✓"
	if notice.Level == actions.LevelError {
		prefix = "✗"
	}
	fmt.Fprintf(n.out, "%s %s\n", prefix, notice.Message)
}

// file resolves a path argument without touching the disk. Missing or
// oversized files fail when the dispatcher encodes them, after its own
// validation and with the user notified.
func (s *session) file(path string) media.File {
	if path == "" {
		return nil
	}
	return media.LimitedFile{Path: path, Max: s.cfg.Client.MaxUploadBytes}
}

func (s *session) render(ctx context.Context) error {
	user, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	return renderFeed(s.out, s.feed, user.ID, s.now(), 0)
}

func videoArg(flags *pflag.FlagSet, pos int) (int64, error) {
	raw := flags.Arg(pos)
	if raw == "" {
		return 0, errors.New("expected a video id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid video id %q", raw)
	}
	return id, nil
}

func feedCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	expand, err := flags.GetInt64("expand")
	if err != nil {
		return err
	}
	if err := s.feed.Refresh(ctx); err != nil {
		return err
	}
	if expand > 0 {
		s.dispatcher.Drafts().ToggleExpanded(expand)
	}
	expanded, _ := s.dispatcher.Drafts().Expanded()

	user, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	return renderFeed(s.out, s.feed, user.ID, s.now(), expanded)
}

func likeCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	id, err := videoArg(flags, 0)
	if err != nil {
		return err
	}
	if err := s.feed.Refresh(ctx); err != nil {
		return err
	}
	if err := s.dispatcher.ToggleLike(ctx, id); err != nil {
		return err
	}
	return s.render(ctx)
}

func commentCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	id, err := videoArg(flags, 0)
	if err != nil {
		return err
	}
	s.dispatcher.Drafts().SetComment(id, strings.Join(flags.Args()[1:], " "))
	return s.dispatcher.PostComment(ctx, id)
}

func uploadCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	title, _ := flags.GetString("title")
	videoPath, _ := flags.GetString("video")
	thumbnailPath, _ := flags.GetString("thumbnail")

	drafts := s.dispatcher.Drafts()
	drafts.OpenUpload()
	drafts.SetTitle(title)

	if err := s.dispatcher.CreateVideo(ctx, s.file(videoPath), s.file(thumbnailPath)); err != nil {
		return err
	}
	return s.render(ctx)
}

func thumbnailCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	id, err := videoArg(flags, 0)
	if err != nil {
		return err
	}
	if err := s.feed.Refresh(ctx); err != nil {
		return err
	}
	s.dispatcher.Drafts().SetThumbnailTarget(id)
	return s.dispatcher.UpdateThumbnail(ctx, s.file(flags.Arg(1)))
}

func avatarCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	if err := s.dispatcher.UpdateAvatar(ctx, s.file(flags.Arg(0))); err != nil {
		return err
	}
	user, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, user.AvatarURL)
	return nil
}

func shareCommand(ctx context.Context, s *session, flags *pflag.FlagSet) error {
	id, err := videoArg(flags, 0)
	if err != nil {
		return err
	}
	return s.dispatcher.Share(ctx, id)
}
