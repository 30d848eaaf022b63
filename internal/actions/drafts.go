package actions

import "sync"

// Drafts holds the ephemeral text and selection state the presentation layer
// edits between actions. It is safe for concurrent use.
type Drafts struct {
	mu              sync.RWMutex
	comments        map[int64]string
	title           string
	expanded        int64
	uploadOpen      bool
	thumbnailTarget int64
}

func NewDrafts() *Drafts {
	return &Drafts{comments: make(map[int64]string)}
}

func (d *Drafts) Comment(videoID int64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.comments[videoID]
}

func (d *Drafts) SetComment(videoID int64, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == "" {
		delete(d.comments, videoID)
		return
	}
	d.comments[videoID] = text
}

func (d *Drafts) ClearComment(videoID int64) {
	d.SetComment(videoID, "")
}

func (d *Drafts) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

func (d *Drafts) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

// Expanded returns the video whose comment panel is open, if any.
func (d *Drafts) Expanded() (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.expanded, d.expanded != 0
}

// ToggleExpanded opens the comment panel of videoID, closing any other, or
// closes it when it is already open.
func (d *Drafts) ToggleExpanded(videoID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.expanded == videoID {
		d.expanded = 0
		return
	}
	d.expanded = videoID
}

func (d *Drafts) UploadOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uploadOpen
}

func (d *Drafts) OpenUpload() {
	d.mu.Lock()
	d.uploadOpen = true
	d.mu.Unlock()
}

func (d *Drafts) CloseUpload() {
	d.mu.Lock()
	d.uploadOpen = false
	d.mu.Unlock()
}

// ThumbnailTarget returns the video selected for a thumbnail replacement.
func (d *Drafts) ThumbnailTarget() (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.thumbnailTarget, d.thumbnailTarget != 0
}

func (d *Drafts) SetThumbnailTarget(videoID int64) {
	d.mu.Lock()
	d.thumbnailTarget = videoID
	d.mu.Unlock()
}

func (d *Drafts) ClearThumbnailTarget() {
	d.SetThumbnailTarget(0)
}
