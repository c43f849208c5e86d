package hn_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garnizeh/hnjobs/internal/hn"
	"github.com/garnizeh/hnjobs/internal/jobs"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository/mock"
)

func hiringThreadServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item/100.json":
			fmt.Fprint(w, `{"id":100,"type":"story","title":"Ask HN: Who is hiring? (August 2025)","time":1754006400,"kids":[101,102,103],"score":420,"descendants":3}`)
		case "/item/101.json":
			fmt.Fprint(w, `{"id":101,"type":"comment","parent":100,"time":1754006500,"text":"ACME | Senior Gopher | Remote | acme.example"}`)
		case "/item/102.json":
			fmt.Fprint(w, `{"id":102,"type":"comment","parent":100,"deleted":true}`)
		case "/item/103.json":
			fmt.Fprint(w, `{"id":103,"type":"comment","parent":100,"time":1754006600,"text":""}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSyncThread(t *testing.T) {
	srv := hiringThreadServer(t)
	defer srv.Close()

	mocks := mock.NewMocks()
	client := hn.NewClient(testConfig(srv.URL), nil)
	syncer := hn.NewSyncer(client, mocks.Stories, mocks.Comments, mocks.Queue, nil)

	res, err := syncer.SyncThread(context.Background(), 100)
	if err != nil {
		t.Fatalf("SyncThread error: %v", err)
	}
	if res.CommentsSaved != 1 {
		t.Fatalf("expected 1 saved comment got %d", res.CommentsSaved)
	}

	story, err := mocks.Stories.GetStoryByHNID(context.Background(), 100)
	if err != nil || story == nil {
		t.Fatalf("expected stored story got %#v, %v", story, err)
	}
	if story.Month != time.Unix(1754006400, 0).UTC().Format("2006-01") {
		t.Fatalf("unexpected month bucket: %q", story.Month)
	}
	if story.KidsCount != 3 || story.DescendantsCount != 3 || story.Score != 420 {
		t.Fatalf("unexpected counters: %#v", story)
	}

	comment, err := mocks.Comments.GetCommentByHNID(context.Background(), 101)
	if err != nil || comment == nil {
		t.Fatalf("expected stored comment got %#v, %v", comment, err)
	}
	if comment.ProcessedStatus != models.StatusPending {
		t.Fatalf("expected pending comment got %q", comment.ProcessedStatus)
	}

	// one extraction job per pending comment of the synced story
	if len(mocks.Queue.Enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job got %d", len(mocks.Queue.Enqueued))
	}
	if mocks.Queue.Enqueued[0].Type != jobs.TypeExtractPosting {
		t.Fatalf("unexpected job type %q", mocks.Queue.Enqueued[0].Type)
	}
}

func TestSyncThreadIsIdempotent(t *testing.T) {
	srv := hiringThreadServer(t)
	defer srv.Close()

	mocks := mock.NewMocks()
	client := hn.NewClient(testConfig(srv.URL), nil)
	syncer := hn.NewSyncer(client, mocks.Stories, mocks.Comments, mocks.Queue, nil)

	if _, err := syncer.SyncThread(context.Background(), 100); err != nil {
		t.Fatalf("first sync error: %v", err)
	}
	res, err := syncer.SyncThread(context.Background(), 100)
	if err != nil {
		t.Fatalf("second sync error: %v", err)
	}

	// the story hit the duplicate path and the comment batch skipped the
	// already-ingested hn_id
	if res.CommentsSaved != 0 {
		t.Fatalf("expected 0 new comments on re-sync got %d", res.CommentsSaved)
	}
	if len(mocks.Stories.Stored) != 1 {
		t.Fatalf("expected a single story row got %d", len(mocks.Stories.Stored))
	}
	if len(mocks.Comments.Stored) != 1 {
		t.Fatalf("expected a single comment row got %d", len(mocks.Comments.Stored))
	}
}

func TestSyncThreadRejectsNonStory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":55,"type":"comment","text":"not a thread"}`)
	}))
	defer srv.Close()

	mocks := mock.NewMocks()
	client := hn.NewClient(testConfig(srv.URL), nil)
	syncer := hn.NewSyncer(client, mocks.Stories, mocks.Comments, mocks.Queue, nil)

	if _, err := syncer.SyncThread(context.Background(), 55); err == nil {
		t.Fatalf("expected error for non-story item")
	}
	if len(mocks.Stories.Stored) != 0 {
		t.Fatalf("expected nothing stored got %d stories", len(mocks.Stories.Stored))
	}
}

func TestMonthOf(t *testing.T) {
	if got := hn.MonthOf(1754006400); got != "2025-08" {
		t.Fatalf("expected 2025-08 got %q", got)
	}
	// zero timestamps fall back to the current month
	if got, want := hn.MonthOf(0), time.Now().UTC().Format("2006-01"); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}
