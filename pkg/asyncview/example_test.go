package asyncview_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

type printNavigator struct{ base string }

func (n printNavigator) Navigate(ctx context.Context, url string) error {
	fmt.Println("navigate:", url[len(n.base):])
	return nil
}

func Example_download() {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("task_id") == "" {
			fmt.Fprint(w, `{"task_id": "abc", "ready": false}`)
			return
		}
		fmt.Fprintf(w, `{"ready": %t}`, polls.Add(1) >= 2)
	}))
	defer server.Close()

	err := asyncview.RunDownload(context.Background(), asyncview.DownloadOptions{
		BaseURL:   server.URL + "/export",
		Navigator: printNavigator{base: server.URL},
		Options: asyncview.Options{
			Schedule: asyncview.Fixed(time.Millisecond),
			MaxPolls: 5,
			Callbacks: asyncview.Callbacks{
				OnSuccess:  func() { fmt.Println("success") },
				OnComplete: func() { fmt.Println("complete") },
			},
		},
	})
	fmt.Println("err:", err, "polls:", polls.Load())
	// Output:
	// success
	// complete
	// navigate: /export?task_id=abc&download=true
	// err: <nil> polls: 2
}

func Example_view() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ready": true, "html": "<p>done</p>"}`)
	}))
	defer server.Close()

	var rewrites asyncview.RewriteBus
	rewrites.Subscribe(func(ev asyncview.RewriteEvent) {
		fmt.Println("rewritten:", ev.HTML)
	})

	err := asyncview.RunView(context.Background(), asyncview.ViewOptions{
		BaseURL:  server.URL,
		TaskID:   "abc",
		Rewrites: &rewrites,
		Options:  asyncview.Options{Schedule: asyncview.Fixed(0)},
	})
	fmt.Println("err:", err)
	// Output:
	// rewritten: <p>done</p>
	// err: <nil>
}
