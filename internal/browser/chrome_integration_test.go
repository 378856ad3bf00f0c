//go:build integration

package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reactLikeForm shadows the value property of #name and #bio on the instances, the way
// reactive frameworks do, and posts what it observes back to /state after every event.
// Values are read through the prototype getters so the instance getters cannot hide them.
const reactLikeForm = `<!doctype html>
<html><body>
<form>
	<input type="text" id="name" placeholder="Full Name">
	<input type="email" id="mail" placeholder="Email Address">
	<textarea id="bio" placeholder="Skills"></textarea>
</form>
<script>
	const seen = [];
	const inputValue = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, "value");
	const areaValue = Object.getOwnPropertyDescriptor(HTMLTextAreaElement.prototype, "value");
	for (const id of ["name", "bio"]) {
		Object.defineProperty(document.getElementById(id), "value", {
			get() { return ""; },
			set(v) { seen.push("instance-setter:" + id); },
		});
	}
	for (const type of ["input", "change", "blur", "keydown", "keyup"]) {
		document.addEventListener(type, (e) => {
			seen.push(type + ":" + e.target.id);
			const values = {
				name: inputValue.get.call(document.getElementById("name")),
				mail: inputValue.get.call(document.getElementById("mail")),
				bio: areaValue.get.call(document.getElementById("bio")),
			};
			fetch("/state", {method: "POST", body: JSON.stringify({seen: seen.slice(), values})});
		}, true);
	}
</script>
</body></html>`

type pageState struct {
	Seen   []string          `json:"seen"`
	Values map[string]string `json:"values"`
}

// stateRecorder keeps the most complete state posted by the page; posts may arrive out
// of order.
type stateRecorder struct {
	mu    sync.Mutex
	state pageState
}

func (r *stateRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodPost && req.URL.Path == "/state" {
		var st pageState
		if err := json.NewDecoder(req.Body).Decode(&st); err == nil {
			r.mu.Lock()
			if len(st.Seen) >= len(r.state.Seen) {
				r.state = st
			}
			r.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(reactLikeForm))
}

func (r *stateRecorder) snapshot() pageState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// eventsFor returns the recorded events for one control id, in order.
func eventsFor(seen []string, id string) []string {
	var events []string
	for _, s := range seen {
		for _, typ := range []string{"input", "change", "blur", "keydown", "keyup"} {
			if s == typ+":"+id {
				events = append(events, typ)
			}
		}
	}
	return events
}

func requireChrome(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(bin); err == nil {
			return
		}
	}
	t.Skip("Skipping browser test: no Chrome binary on PATH")
}

func TestDrivers_FillLivePage(t *testing.T) {
	requireChrome(t)

	for _, driver := range []string{DriverChromedp, DriverRod} {
		t.Run(driver, func(t *testing.T) {
			recorder := &stateRecorder{}
			srv := httptest.NewServer(recorder)
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()

			session, err := NewSession(ctx, driver, Options{Headless: true}, nil)
			require.NoError(t, err)
			defer session.Close()

			page, err := session.OpenPage(ctx, srv.URL)
			require.NoError(t, err)
			defer page.Close()

			profile := &types.Profile{
				FullName:     "Jane Doe",
				Email:        "jane@x.com",
				CustomFields: []types.CustomField{{Name: "Skills", Value: "Go, Rust"}},
			}
			report, err := fill.NewEngine(nil).Fill(ctx, page, profile)
			require.NoError(t, err)
			assert.Equal(t, 3, report.Filled)
			assert.Equal(t, "generic", report.Dialect)

			want := []string{"input", "change", "blur", "keydown", "keyup", "input"}
			require.Eventually(t, func() bool {
				st := recorder.snapshot()
				return len(eventsFor(st.Seen, "bio")) == len(want) && st.Values["bio"] != ""
			}, 10*time.Second, 50*time.Millisecond, "page never reported the textarea fill")

			st := recorder.snapshot()
			assert.NotContains(t, st.Seen, "instance-setter:name")
			assert.NotContains(t, st.Seen, "instance-setter:bio")
			for _, id := range []string{"name", "mail", "bio"} {
				assert.Equal(t, want, eventsFor(st.Seen, id), "event sequence for #%s", id)
			}
			assert.Equal(t, "Jane Doe", st.Values["name"])
			assert.Equal(t, "jane@x.com", st.Values["mail"])
			assert.Equal(t, "Go, Rust", st.Values["bio"])
		})
	}
}

func TestFillURL_NewTab(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(&stateRecorder{})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	session, err := NewSession(ctx, DriverChromedp, Options{Headless: true}, nil)
	require.NoError(t, err)
	defer session.Close()

	report, err := FillURL(ctx, session, fill.NewEngine(nil), srv.URL, &types.Profile{FullName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Filled)
}
