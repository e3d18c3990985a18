package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fixitall/intake/internal/config"
	"github.com/fixitall/intake/internal/loadcheck"
	"github.com/fixitall/intake/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func setEnv(vars map[string]string) func() {
	for k, v := range vars {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range vars {
			_ = os.Unsetenv(k)
		}
		_ = os.Unsetenv(config.EnvConfigFile)
	}
}

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestInputsCommand(t *testing.T) {
	convey.Convey("Given a store file with two records", t, func() {
		dir := t.TempDir()
		storePath := filepath.Join(dir, "user_inputs.json")
		convey.So(os.WriteFile(storePath, []byte(`[{"name":"Alice"},{"name":"Bob"}]`), 0o644), convey.ShouldBeNil)
		defer setEnv(map[string]string{
			"FIXIT_INPUT_STORE_PATH":      storePath,
			"FIXIT_PROVIDER_CATALOG_PATH": filepath.Join(dir, "providers.json"),
		})()

		convey.Convey("When running inputs", func() {
			out, _, err := execute("inputs")

			convey.Convey("Then the records are printed in order", func() {
				convey.So(err, convey.ShouldBeNil)
				var records []map[string]string
				convey.So(json.Unmarshal([]byte(out), &records), convey.ShouldBeNil)
				convey.So(records, convey.ShouldResemble, []map[string]string{{"name": "Alice"}, {"name": "Bob"}})
			})
		})

		convey.Convey("When running inputs --count", func() {
			out, _, err := execute("inputs", "--count")

			convey.Convey("Then only the count is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.TrimSpace(out), convey.ShouldEqual, "2")
			})
		})
	})
}

func TestProvidersCommand(t *testing.T) {
	convey.Convey("Given a provider catalog", t, func() {
		dir := t.TempDir()
		catalogPath := filepath.Join(dir, "providers.json")
		convey.So(os.WriteFile(catalogPath, []byte(`[{"fullName":"Ana","serviceCategory":"Plumbing"},{"fullName":"Ben","serviceCategory":"Electrical"}]`), 0o644), convey.ShouldBeNil)

		configPath := filepath.Join(dir, "intake.yaml")
		convey.So(os.WriteFile(configPath, []byte("provider_catalog_path: "+catalogPath+"\n"), 0o644), convey.ShouldBeNil)
		defer setEnv(map[string]string{})()

		convey.Convey("When querying a category through --config", func() {
			out, _, err := execute("--config", configPath, "providers", "--category", "Plumbing")

			convey.Convey("Then only the matches are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Ana")
				convey.So(out, convey.ShouldNotContainSubstring, "Ben")
			})
		})

		convey.Convey("When the category flag is missing", func() {
			_, _, err := execute("--config", configPath, "providers")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "--category is required")
			})
		})
	})
}

func TestNewRouter(t *testing.T) {
	convey.Convey("Given the composed router", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		dir := t.TempDir()
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.InputStorePath = filepath.Join(dir, "user_inputs.json")
		cfg.ProviderCatalogPath = filepath.Join(dir, "providers.json")

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newRouter(ctx, cfg, svc, logger.Get())

		convey.Convey("Then business and docs routes are both served", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/store_input", strings.NewReader(`{"name":"Alice"}`))
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
		})
	})
}

func TestLoadCheckCommand(t *testing.T) {
	convey.Convey("Given a running router", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		dir := t.TempDir()
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.InputStorePath = filepath.Join(dir, "user_inputs.json")
		cfg.ProviderCatalogPath = filepath.Join(dir, "providers.json")

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(newRouter(ctx, cfg, svc, logger.Get()))
		defer srv.Close()

		convey.Convey("When loadcheck runs against it", func() {
			out, _, err := execute("loadcheck", "--url", srv.URL, "--inputs", "20", "--workers", "4")

			convey.Convey("Then the stats report every input stored", func() {
				convey.So(err, convey.ShouldBeNil)
				var stats loadcheck.Stats
				convey.So(json.Unmarshal([]byte(out), &stats), convey.ShouldBeNil)
				convey.So(stats.Accepted, convey.ShouldEqual, 20)
				convey.So(stats.StoredDelta, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loadcheck gets a non-positive input count", func() {
			_, _, err := execute("loadcheck", "--url", srv.URL, "--inputs", "0")

			convey.Convey("Then it fails validation", func() {
				convey.So(errors.Is(err, loadcheck.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
