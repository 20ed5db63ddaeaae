package api_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/anugrahsoft/chatstream/clients/go/chatstream"
	"github.com/anugrahsoft/chatstream/internal/api"
	"github.com/anugrahsoft/chatstream/internal/config"
	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

const testPassword = "secret"

type testServer struct {
	*httptest.Server
	store store.DataStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	cfg := &config.Config{
		Env:            "development",
		PollInterval:   10 * time.Millisecond,
		PostsPerMinute: 1000,
	}
	srv := httptest.NewServer(api.NewRouter(cfg, zerolog.Nop(), st, nil))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	for _, handle := range []string{"alice", "bob"} {
		if _, err := st.CreateUser(ctx, handle, string(hash)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.CreateRoom(ctx, "General", "general"); err != nil {
		t.Fatal(err)
	}

	return &testServer{Server: srv, store: st}
}

func (ts *testServer) client(t *testing.T, handle string) *chatstream.Client {
	t.Helper()
	c, err := chatstream.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), handle, testPassword); err != nil {
		t.Fatal(err)
	}
	return c
}

// browser returns a cookie-carrying HTTP client logged in as handle, for
// page-level requests the chatstream client does not cover.
func (ts *testServer) browser(t *testing.T, handle string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &http.Client{Jar: jar}
	resp, err := c.PostForm(ts.URL+"/login", url.Values{
		"handle":   {handle},
		"password": {testPassword},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %q: %s", handle, resp.Status)
	}
	return c
}

func (ts *testServer) seedRoomMessage(t *testing.T, content string) int64 {
	t.Helper()
	ctx := context.Background()
	sender, err := ts.store.GetUserByHandle(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	room, err := ts.store.GetRoomBySlug(ctx, "general")
	if err != nil {
		t.Fatal(err)
	}
	msg := &models.Message{SenderID: sender.ID, RoomID: &room.ID, Content: content}
	id, err := ts.store.CreateMessage(ctx, msg)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func waitEvent(t *testing.T, ch <-chan chatstream.Event) chatstream.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("stream closed before event arrived")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return chatstream.Event{}
}

func expectNoEvent(t *testing.T, ch <-chan chatstream.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t)

	c := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := c.Get(ts.URL + "/room/general")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %s", resp.Status)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/login?next=") {
		t.Fatalf("Location = %q", loc)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)

	c, err := chatstream.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), "alice", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
}

func TestRoomStreamDeliversPostedMessage(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.client(t, "alice")
	bob := ts.client(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bob.StreamRoom(ctx, "general", 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := alice.PostRoom(ctx, "general", "hello room"); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, events)
	if ev.Name != "new-message" {
		t.Fatalf("event name = %q", ev.Name)
	}
	if ev.Data != "<p><strong>alice:</strong> hello room</p>" {
		t.Fatalf("event data = %q", ev.Data)
	}
	if ev.ID == 0 {
		t.Fatal("event carried no cursor")
	}
}

func TestFreshStreamSkipsRenderedHistory(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.client(t, "alice")
	bob := ts.client(t, "bob")

	for _, content := range []string{"old one", "old two", "old three"} {
		ts.seedRoomMessage(t, content)
	}
	since := ts.seedRoomMessage(t, "last rendered")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bob.StreamRoom(ctx, "general", since)
	if err != nil {
		t.Fatal(err)
	}
	expectNoEvent(t, events)

	if err := alice.PostRoom(ctx, "general", "fresh"); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if !strings.Contains(ev.Data, "fresh") {
		t.Fatalf("event data = %q", ev.Data)
	}
	expectNoEvent(t, events)
}

func TestStreamResumesAfterCursor(t *testing.T) {
	ts := newTestServer(t)
	bob := ts.client(t, "bob")

	ids := make([]int64, 5)
	for i, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		ids[i] = ts.seedRoomMessage(t, content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bob.StreamRoom(ctx, "general", ids[2])
	if err != nil {
		t.Fatal(err)
	}

	for _, wantID := range ids[3:] {
		ev := waitEvent(t, events)
		if ev.ID != wantID {
			t.Fatalf("event id = %d, want %d", ev.ID, wantID)
		}
	}
	expectNoEvent(t, events)
}

func TestBlankPostIsAbsorbed(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.client(t, "alice")
	bob := ts.client(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bob.StreamRoom(ctx, "general", 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := alice.PostRoom(ctx, "general", "   "); err != nil {
		t.Fatal(err)
	}
	expectNoEvent(t, events)
}

func TestOverlongPostRejected(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.client(t, "alice")

	err := alice.PostRoom(context.Background(), "general", strings.Repeat("x", models.MaxContentLength+1))
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("err = %v", err)
	}
}

func TestDirectMessagesAreSymmetric(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.client(t, "alice")
	bob := ts.client(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Alice tails her conversation with bob; bob posts into his with alice.
	events, err := alice.StreamDM(ctx, "bob", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := bob.PostDM(ctx, "alice", "hi alice"); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, events)
	if ev.Data != "<p><strong>bob:</strong> hi alice</p>" {
		t.Fatalf("event data = %q", ev.Data)
	}
}

func TestSelfConversationRejected(t *testing.T) {
	ts := newTestServer(t)
	browser := ts.browser(t, "alice")

	resp, err := browser.Get(ts.URL + "/dm/alice")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %s", resp.Status)
	}
}

func TestUnknownConversationIs404(t *testing.T) {
	ts := newTestServer(t)
	browser := ts.browser(t, "alice")

	for _, path := range []string{"/room/nowhere", "/dm/nobody", "/room/nowhere/sse"} {
		resp, err := browser.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s: status = %s", path, resp.Status)
		}
	}
}

func TestConversationPageRendersHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoomMessage(t, "already here")
	browser := ts.browser(t, "bob")

	resp, err := browser.Get(ts.URL + "/room/general")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "<p><strong>alice:</strong> already here</p>") {
		t.Fatalf("page missing rendered history:\n%s", raw)
	}
}

func TestConversationPageCursorMatchesHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.seedRoomMessage(t, "first")
	ts.seedRoomMessage(t, "second")
	lastID := ts.seedRoomMessage(t, "third")
	browser := ts.browser(t, "bob")

	resp, err := browser.Get(ts.URL + "/room/general")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	// The page must embed exactly the id of the newest message it rendered,
	// so the stream resumes where the rendered history ends.
	want := fmt.Sprintf("?since=%d", lastID)
	if !strings.Contains(string(raw), want) {
		t.Fatalf("page missing cursor %q:\n%s", want, raw)
	}
	if !strings.Contains(string(raw), "third") {
		t.Fatal("page missing the message the cursor points at")
	}
}

func TestEmptyConversationPageCursorIsZero(t *testing.T) {
	ts := newTestServer(t)
	browser := ts.browser(t, "bob")

	resp, err := browser.Get(ts.URL + "/room/general")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "?since=0") {
		t.Fatalf("empty conversation must embed cursor 0:\n%s", raw)
	}
}

func TestUpdateLastSeen(t *testing.T) {
	ts := newTestServer(t)
	browser := ts.browser(t, "alice")

	resp, err := browser.Post(ts.URL+"/update-last-seen", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %s", resp.Status)
	}

	// The write is fire-and-forget; give it a moment to land.
	deadline := time.Now().Add(time.Second)
	for {
		user, err := ts.store.GetUserByHandle(context.Background(), "alice")
		if err != nil {
			t.Fatal(err)
		}
		if user.LastSeen != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("last_seen was never written")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %s", resp.Status)
	}
}
