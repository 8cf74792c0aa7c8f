package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"board-relay/database"
	"board-relay/models"
	"board-relay/state"
	"board-relay/storage"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epoch = int64(1_000_000)

type fakeBoard struct {
	mu          sync.Mutex
	catalog     []models.CatalogThread
	threads     map[string][]models.WirePost
	media       map[string][]byte
	failCatalog bool
	hits        map[string]int
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		threads: map[string][]models.WirePost{},
		media:   map[string][]byte{},
		hits:    map[string]int{},
	}
}

func (b *fakeBoard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[r.URL.Path]++

	switch {
	case r.URL.Path == "/g/catalog.json":
		if b.failCatalog {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		json.NewEncoder(w).Encode([]models.CatalogPage{{Page: 1, Threads: b.catalog}})
	case strings.HasPrefix(r.URL.Path, "/g/thread/"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/g/thread/"), ".json")
		posts, ok := b.threads[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(models.ThreadResponse{Posts: posts})
	case strings.HasPrefix(r.URL.Path, "/i/"):
		data, ok := b.media[strings.TrimPrefix(r.URL.Path, "/i/")]
		if !ok {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBoard) setThread(id int64, lastModified int64, posts ...models.WirePost) {
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for i, ct := range b.catalog {
		if ct.No == id {
			b.catalog[i].LastModified = lastModified
			found = true
		}
	}
	if !found {
		b.catalog = append(b.catalog, models.CatalogThread{No: id, LastModified: lastModified})
	}
	b.threads[models.FormatID(id)] = posts
	for _, p := range posts {
		if p.Tim != "" {
			if _, ok := b.media[p.Tim.String()+p.Ext]; !ok {
				b.media[p.Tim.String()+p.Ext] = []byte("img-" + p.Tim.String())
			}
		}
	}
}

func (b *fakeBoard) dropThread(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.catalog[:0]
	for _, ct := range b.catalog {
		if ct.No != id {
			kept = append(kept, ct)
		}
	}
	b.catalog = kept
}

func (b *fakeBoard) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func wirePost(no, tim, at int64, com string) models.WirePost {
	p := models.WirePost{No: no, Com: com, Time: at}
	if tim != 0 {
		p.Tim = json.Number(models.FormatID(tim))
		p.Ext = ".jpg"
		p.Filename = "upload"
	}
	return p
}

type fakeDumper struct {
	calls []string
	err   error
}

func (d *fakeDumper) Dump(_ context.Context, t models.Target, threadID string) error {
	d.calls = append(d.calls, t.Directory+"/"+threadID)
	return d.err
}

type fakeHistory struct {
	exclusions []database.Exclusion
}

func (h *fakeHistory) AddExclusion(e database.Exclusion) error {
	h.exclusions = append(h.exclusions, e)
	return nil
}

type harness struct {
	board   *fakeBoard
	state   *state.State
	blobs   *storage.LocalStore
	dumper  *fakeDumper
	history *fakeHistory
	poller  *Poller
	target  models.Target
	now     int64
}

func newHarness(t *testing.T, doc *state.Document) *harness {
	t.Helper()
	board := newFakeBoard()
	srv := httptest.NewServer(board)
	t.Cleanup(srv.Close)

	target := models.Target{
		Directory:  "g",
		CatalogURL: srv.URL + "/g/catalog.json",
		ThreadURL:  srv.URL + "/g/thread/%%NUMBER%%.json",
		ImageURL:   srv.URL + "/i/%%TIM%%%%EXT%%",
	}
	if doc == nil {
		doc = &state.Document{}
	}
	doc.Targets = []models.Target{target}

	blobs, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)

	h := &harness{
		board:   board,
		state:   state.New(doc),
		blobs:   blobs,
		dumper:  &fakeDumper{},
		history: &fakeHistory{},
		target:  target,
		now:     epoch,
	}
	h.poller = NewPoller(h.state, NewClient(srv.Client(), 0), blobs, h.dumper,
		WithHistory(h.history),
		WithClock(func() time.Time { return time.Unix(h.now, 0) }),
	)
	return h
}

func (h *harness) poll(t *testing.T) Result {
	t.Helper()
	res, err := h.poller.PollTarget(context.Background(), h.target)
	require.NoError(t, err)
	return res
}

func (h *harness) stored(t *testing.T) []string {
	t.Helper()
	keys, err := h.blobs.List(context.Background(), "")
	require.NoError(t, err)
	return keys
}

func TestClientCatalogAndThread(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, 10, wirePost(1, 111, 5, "op"), models.WirePost{No: 2, Time: 6, Closed: 1})
	h.board.setThread(2, 20)

	threads, err := h.poller.source.Catalog(context.Background(), h.target)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	thread, err := h.poller.source.Thread(context.Background(), h.target, "1")
	require.NoError(t, err)
	assert.True(t, thread.Closed)
	assert.Equal(t, "111.jpg", thread.Posts[0].Filename)
	assert.False(t, thread.Posts[1].HasMedia())

	_, err = h.poller.source.Thread(context.Background(), h.target, "2")
	assert.Error(t, err, "empty thread is unusable")

	_, err = h.poller.source.Thread(context.Background(), h.target, "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientRejectsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts": [`))
	}))
	defer srv.Close()
	c := NewClient(srv.Client(), time.Millisecond)
	target := models.Target{Directory: "g", CatalogURL: srv.URL, ThreadURL: srv.URL + "/%%NUMBER%%"}

	_, err := c.Catalog(context.Background(), target)
	assert.Error(t, err)
	_, err = c.Thread(context.Background(), target, "1")
	assert.Error(t, err)
}

func TestWirePostAcceptsQuotedTim(t *testing.T) {
	var tr models.ThreadResponse
	require.NoError(t, json.Unmarshal([]byte(`{"posts":[{"no":1,"tim":"1700000000123","ext":".png","time":5}]}`), &tr))

	p := tr.Posts[0].Post()

	assert.Equal(t, "1700000000123.png", p.Filename)
}

func TestFirstPollSkipsBacklog(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))

	res := h.poll(t)

	assert.Zero(t, res.Queued)
	assert.Empty(t, h.stored(t))
	assert.Zero(t, h.board.hitCount("/g/thread/1.json"))
	touched, ok := h.state.Touched("g", "1")
	require.True(t, ok)
	assert.Equal(t, epoch, touched)
}

func TestPollQueuesNewMedia(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	h.board.setThread(1, epoch+800,
		wirePost(1, 111, epoch-200, "<b>op</b> text"),
		wirePost(2, 222, epoch+700, `<span class="quote">&gt;reply</span>`),
		wirePost(3, 0, epoch+710, "no image"),
	)
	h.now = epoch + 1000
	res := h.poll(t)

	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, []string{"g/1/222.jpg"}, h.stored(t))
	entry, ok := h.state.Lookup("g/1/222.jpg")
	require.True(t, ok)
	assert.Equal(t, "2", entry.PostID)
	assert.Equal(t, epoch+700, entry.PostedAt)
	assert.Equal(t, "op text", h.state.ThreadOp("g", "1"))
	assert.Equal(t, epoch+700, h.state.Doc().OldestPostTime["g"])

	touched, _ := h.state.Touched("g", "1")
	assert.Equal(t, epoch+1000, touched)

	// nothing new: not refetched
	hits := h.board.hitCount("/g/thread/1.json")
	h.poll(t)
	assert.Equal(t, hits, h.board.hitCount("/g/thread/1.json"))
}

func TestPollHonorsJannyLag(t *testing.T) {
	h := newHarness(t, &state.Document{JannyLag: 300})
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	h.board.setThread(1, epoch+2000,
		wirePost(2, 222, epoch+1000, "old enough"),
		wirePost(3, 333, epoch+1900, "too fresh"),
	)
	h.now = epoch + 2000
	h.poll(t)

	assert.Equal(t, []string{"g/1/222.jpg"}, h.stored(t))
	touched, _ := h.state.Touched("g", "1")
	assert.Equal(t, epoch+1700, touched)
}

func TestPollMediaFailureKeepsTouch(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	h.board.setThread(1, epoch+800, wirePost(2, 222, epoch+700, "a"), wirePost(3, 333, epoch+710, "b"))
	h.board.mu.Lock()
	delete(h.board.media, "333.jpg")
	h.board.mu.Unlock()
	h.now = epoch + 1000
	h.poll(t)

	touched, _ := h.state.Touched("g", "1")
	assert.Equal(t, epoch, touched, "retry next tick")
	assert.Equal(t, []string{"g/1/222.jpg"}, h.stored(t))
	assert.Equal(t, 1, h.state.QueueLen())
}

func TestPollFlaggedThread(t *testing.T) {
	h := newHarness(t, &state.Document{BadWords: []string{"forbidden"}})
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	h.board.setThread(1, epoch+800,
		wirePost(1, 111, epoch-200, "op"),
		wirePost(2, 222, epoch+700, "this is FORBIDDEN"),
	)
	h.now = epoch + 1000
	res := h.poll(t)

	assert.Equal(t, 1, res.Flagged)
	assert.Zero(t, h.state.QueueLen())
	assert.Empty(t, h.stored(t))
	touched, _ := h.state.Touched("g", "1")
	assert.Equal(t, state.TouchedForever, touched)
	require.Len(t, h.history.exclusions, 1)
	assert.Equal(t, "badword: forbidden", h.history.exclusions[0].Reason)

	// permanently skipped
	h.board.setThread(1, epoch+5000, wirePost(3, 333, epoch+4000, "fine"))
	h.now = epoch + 6000
	hits := h.board.hitCount("/g/thread/1.json")
	h.poll(t)
	assert.Equal(t, hits, h.board.hitCount("/g/thread/1.json"))
}

func TestPollClosedThreadDumps(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	closed := wirePost(1, 111, epoch-200, "op")
	closed.Closed = 1
	h.board.setThread(1, epoch+800, closed)
	h.now = epoch + 1000
	res := h.poll(t)

	assert.Equal(t, 1, res.Dumped)
	assert.Equal(t, []string{"g/1"}, h.dumper.calls)
	touched, _ := h.state.Touched("g", "1")
	assert.Equal(t, state.TouchedForever, touched)
}

func TestPollDeletedThreadDumps(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.board.setThread(2, epoch-100, wirePost(5, 555, epoch-200, "op"))
	h.poll(t)

	h.board.dropThread(1)
	h.now = epoch + 60
	h.poll(t)

	assert.Equal(t, []string{"g/1"}, h.dumper.calls)
	_, ok := h.state.Touched("g", "1")
	assert.False(t, ok)
	old, _ := h.state.OldThreads("g")
	require.Len(t, old, 1)
	assert.Equal(t, int64(2), old[0].No)
}

func TestPollFailedDumpIsPending(t *testing.T) {
	h := newHarness(t, nil)
	h.dumper.err = errors.New("posting api down")
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)

	h.board.dropThread(1)
	h.poll(t)

	assert.Equal(t, []models.PostRef{{Target: "g", ThreadID: "1"}}, h.state.PendingDumps())
}

func TestPollSkipsGatedThread(t *testing.T) {
	h := newHarness(t, nil)
	h.board.setThread(1, epoch-100, wirePost(1, 111, epoch-200, "op"))
	h.poll(t)
	h.state.SetPleromaID(models.PostRef{Target: "g", ThreadID: "1", PostID: "1"}, "status-1")

	h.board.setThread(1, epoch+800, wirePost(2, 222, epoch+700, "reply"))
	h.now = epoch + 1000
	h.poll(t)

	assert.Zero(t, h.board.hitCount("/g/thread/1.json"))
	assert.Empty(t, h.stored(t))
}

func TestPollCatalogFailureMutatesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.board.failCatalog = true

	res, err := h.poller.PollTarget(context.Background(), h.target)

	assert.Error(t, err)
	assert.Equal(t, 1, res.FetchErrors)
	assert.False(t, h.state.Dirty())
	_, seen := h.state.OldThreads("g")
	assert.False(t, seen)
}

func TestDownscale(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(100, 50, image.Black.C), imaging.PNG))

	out, err := Downscale(buf.Bytes(), ".png", 20)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	same, err := Downscale(buf.Bytes(), ".png", 200)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), same)

	gif := []byte("GIF89a")
	same, err = Downscale(gif, ".gif", 20)
	require.NoError(t, err)
	assert.Equal(t, gif, same)
}
