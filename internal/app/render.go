package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vidfriends/vidfeed/internal/models"
)

// feedView is the read side of the feed cache used for rendering.
type feedView interface {
	Videos() []models.Video
	IsLikedBy(v models.Video, userID int64) bool
	CommentCount(v models.Video) int
	FormattedViewCount(v models.Video) string
	FormattedAge(v models.Video, now time.Time) string
}

// renderFeed prints one card per video. The comments of the expanded video
// are listed under its card.
func renderFeed(w io.Writer, view feedView, userID int64, now time.Time, expanded int64) error {
	videos := view.Videos()
	if len(videos) == 0 {
		_, err := fmt.Fprintln(w, "Лента пуста")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range videos {
		like := "♡"
		if view.IsLikedBy(v, userID) {
			like = "♥"
		}
		fmt.Fprintf(tw, "#%d\t%s\n", v.ID, v.Title)
		fmt.Fprintf(tw, "\t%s • %s просмотров • %s\n", v.Author, view.FormattedViewCount(v), view.FormattedAge(v, now))
		fmt.Fprintf(tw, "\t%s %d • комментарии: %d\n", like, v.LikesCount, view.CommentCount(v))
		if v.ID == expanded {
			for _, c := range v.Comments {
				fmt.Fprintf(tw, "\t  %s: %s\n", c.Author, c.Text)
			}
		}
	}
	return tw.Flush()
}
