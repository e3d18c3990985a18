package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fixitall/intake/internal/adapters/http/api"
	service "github.com/fixitall/intake/internal/app"
	"github.com/fixitall/intake/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIntakeEndToEnd(t *testing.T) {
	Convey("Given the API wired to a real service on disk", t, func() {
		dir := t.TempDir()
		storePath := filepath.Join(dir, "user_inputs.json")
		catalogPath := filepath.Join(dir, "providers.json")
		So(os.WriteFile(catalogPath, []byte(`[
  {"fullName": "Ana Ruiz", "serviceCategory": "Plumbing", "baseRate": 45},
  {"fullName": "Ben Osei", "serviceCategory": "Electrical", "baseRate": 60},
  {"fullName": "Cid Park", "serviceCategory": "plumbing", "baseRate": 50}
]`), 0o644), ShouldBeNil)

		ctx := context.Background()
		svc := service.New(
			service.WithBackend(config.BackendFile),
			service.WithInputStorePath(storePath),
			service.WithCatalogPath(catalogPath),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		r := chi.NewRouter()
		api.NewServer(svc, svc).Register(ctx, r)

		Convey("When Alice then Bob are posted", func() {
			So(do(r, http.MethodPost, "/store_input", `{"name":"Alice"}`).Code, ShouldEqual, http.StatusOK)
			So(do(r, http.MethodPost, "/store_input", `{"name":"Bob"}`).Code, ShouldEqual, http.StatusOK)

			Convey("Then the store file holds both in post order", func() {
				data, err := os.ReadFile(storePath)
				So(err, ShouldBeNil)
				var stored []map[string]string
				So(json.Unmarshal(data, &stored), ShouldBeNil)
				So(stored, ShouldResemble, []map[string]string{{"name": "Alice"}, {"name": "Bob"}})
				So(string(data), ShouldContainSubstring, "\n  {\n    \"name\": \"Alice\"")
			})
		})

		Convey("When an empty body is posted", func() {
			So(do(r, http.MethodPost, "/store_input", "").Code, ShouldEqual, http.StatusBadRequest)

			Convey("Then no store file is created", func() {
				_, err := os.Stat(storePath)
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})

		Convey("When a body with invalid UTF-8 is posted", func() {
			w := do(r, http.MethodPost, "/store_input", "{\"name\":\"\xff\"}")

			Convey("Then it is rejected and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "Invalid JSON input")
				_, err := os.Stat(storePath)
				So(os.IsNotExist(err), ShouldBeTrue)
			})
		})

		Convey("When many inputs are posted concurrently", func() {
			const n = 30
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					do(r, http.MethodPost, "/store_input", fmt.Sprintf(`{"n":%d}`, i))
				}(i)
			}
			wg.Wait()

			Convey("Then no update is lost", func() {
				records, err := svc.Inputs(ctx)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, n)
			})
		})

		Convey("When querying a category", func() {
			w := do(r, http.MethodGet, "/providers?category=Plumbing", "")

			Convey("Then only case-sensitive exact matches are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["success"], ShouldEqual, true)
				providers, _ := body["providers"].([]any)
				So(len(providers), ShouldEqual, 1)
				So(providers[0].(map[string]any)["fullName"], ShouldEqual, "Ana Ruiz")
			})
		})

		Convey("When the catalog is corrupted", func() {
			So(os.WriteFile(catalogPath, []byte(`[{"serviceCategory":`), 0o644), ShouldBeNil)
			w := do(r, http.MethodGet, "/providers?category=Plumbing", "")

			Convey("Then every lookup fails with 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				msg, _ := decode(w)["message"].(string)
				So(strings.HasPrefix(msg, "Error reading provider file: "), ShouldBeTrue)
			})
		})

		Convey("When the catalog is removed", func() {
			So(os.Remove(catalogPath), ShouldBeNil)
			w := do(r, http.MethodGet, "/providers?category=Plumbing", "")

			Convey("Then lookups fail with 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(w)["message"], ShouldContainSubstring, "no such file or directory")
			})
		})
	})
}
