package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fixitall/intake/internal/adapters/catalog"
	repository "github.com/fixitall/intake/internal/adapters/repository"
	service "github.com/fixitall/intake/internal/app"
	"github.com/fixitall/intake/internal/config"
	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeCatalog(t *testing.T, dir string) string {
	path := filepath.Join(dir, "providers.json")
	content := `[{"fullName":"Ana","serviceCategory":"Plumbing"},{"fullName":"Ben","serviceCategory":"Electrical"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then calls fail with ErrNotStarted", func() {
			err := svc.StoreInput(context.Background(), input.Record(`{"a":1}`))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Providers(context.Background(), "Plumbing")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_FileBackend(t *testing.T) {
	Convey("Given a service on the file backend", t, func() {
		dir := t.TempDir()
		storePath := filepath.Join(dir, "user_inputs.json")
		svc := service.New(
			service.WithBackend(config.BackendFile),
			service.WithInputStorePath(storePath),
			service.WithCatalogPath(writeCatalog(t, dir)),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When storing two inputs", func() {
			So(svc.StoreInput(ctx, input.Record(`{"name":"Alice"}`)), ShouldBeNil)
			So(svc.StoreInput(ctx, input.Record(`{"name":"Bob"}`)), ShouldBeNil)

			Convey("Then both are kept in order", func() {
				records, err := svc.Inputs(ctx)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 2)
				So(string(records[0]), ShouldEqual, `{"name":"Alice"}`)
				So(string(records[1]), ShouldEqual, `{"name":"Bob"}`)
			})

			Convey("And stats report the count", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["backend"], ShouldEqual, "file")
				So(stats["storedInputs"], ShouldEqual, 2)
			})
		})

		Convey("When looking up providers", func() {
			got, err := svc.Providers(ctx, "Electrical")

			Convey("Then the catalog is filtered", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(string(got[0]), ShouldContainSubstring, "Ben")
			})
		})
	})
}

func TestService_FileMode(t *testing.T) {
	Convey("Given a file backend with a restricted file mode", t, func() {
		dir := t.TempDir()
		storePath := filepath.Join(dir, "user_inputs.json")
		svc := service.New(
			service.WithBackend(config.BackendFile),
			service.WithInputStorePath(storePath),
			service.WithInputStoreFileMode(0o600),
			service.WithCatalogPath(writeCatalog(t, dir)),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When an input is stored", func() {
			So(svc.StoreInput(ctx, input.Record(`{"name":"Alice"}`)), ShouldBeNil)

			Convey("Then the store file carries that mode", func() {
				info, err := os.Stat(storePath)
				So(err, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o600))
			})
		})
	})
}

func TestService_SQLiteBackend(t *testing.T) {
	Convey("Given a service on the sqlite backend", t, func() {
		dir := t.TempDir()
		svc := service.New(
			service.WithBackend(config.BackendSQLite),
			service.WithSQLitePath(filepath.Join(dir, "inputs.db")),
			service.WithCatalogPath(filepath.Join(dir, "missing.json")),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When storing an input", func() {
			So(svc.StoreInput(ctx, input.Record(`{"name":"Alice"}`)), ShouldBeNil)

			Convey("Then it can be listed back", func() {
				records, err := svc.Inputs(ctx)
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 1)
				So(svc.GetStats()["backend"], ShouldEqual, "sqlite")
			})
		})

		Convey("When the catalog is missing", func() {
			_, err := svc.Providers(ctx, "Plumbing")

			Convey("Then a catalog read error is returned", func() {
				So(errors.Is(err, catalog.ErrReadCatalog), ShouldBeTrue)
			})
		})
	})
}

func TestService_InjectedStore(t *testing.T) {
	Convey("Given a service with an injected store", t, func() {
		ctx := context.Background()
		store, err := repository.OpenSQLite(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the service stops", func() {
			svc.Stop()

			Convey("Then the injected store stays open", func() {
				So(store.Append(ctx, input.Record(`{"after":"stop"}`)), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_UnknownBackend(t *testing.T) {
	Convey("Given an unknown backend", t, func() {
		svc := service.New(service.WithBackend("mongo"))

		Convey("Then Start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}
