package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fixitall/intake/internal/adapters/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCatalog = `[
  {"fullName": "Ana Ruiz", "serviceCategory": "Plumbing", "baseRate": 45},
  {"fullName": "Ben Osei", "serviceCategory": "Electrical", "baseRate": 60},
  {"fullName": "Cid Park", "serviceCategory": "Plumbing", "baseRate": 50}
]`

func writeCatalog(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "providers.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileCatalog_Lookup(t *testing.T) {
	Convey("Given a provider catalog on disk", t, func() {
		ctx := context.Background()
		path := writeCatalog(t, sampleCatalog)
		c := catalog.NewFileCatalog(path)

		Convey("When looking up a present category", func() {
			got, err := c.Lookup(ctx, "Plumbing")

			Convey("Then only matching providers are returned", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(string(got[0]), ShouldContainSubstring, "Ana Ruiz")
				So(string(got[1]), ShouldContainSubstring, "Cid Park")
			})
		})

		Convey("When looking up an absent category", func() {
			got, err := c.Lookup(ctx, "Roofing")

			Convey("Then an empty result is returned", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 0)
			})
		})

		Convey("When the catalog changes between calls", func() {
			_, err := c.Lookup(ctx, "Plumbing")
			So(err, ShouldBeNil)
			So(os.WriteFile(path, []byte(`[{"serviceCategory":"Plumbing"}]`), 0o644), ShouldBeNil)

			got, err := c.Lookup(ctx, "Plumbing")

			Convey("Then the new contents are read", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
			})
		})
	})
}

func TestFileCatalog_Errors(t *testing.T) {
	Convey("Given an unusable catalog", t, func() {
		ctx := context.Background()

		Convey("When the file does not exist", func() {
			c := catalog.NewFileCatalog(filepath.Join(t.TempDir(), "missing.json"))
			_, err := c.Lookup(ctx, "Plumbing")

			Convey("Then the error matches ErrReadCatalog and names the cause", func() {
				So(errors.Is(err, catalog.ErrReadCatalog), ShouldBeTrue)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "no such file or directory")
			})
		})

		Convey("When the file is malformed", func() {
			c := catalog.NewFileCatalog(writeCatalog(t, `[{"serviceCategory":`))
			_, err := c.Lookup(ctx, "Plumbing")

			Convey("Then a read error is returned", func() {
				So(errors.Is(err, catalog.ErrReadCatalog), ShouldBeTrue)
			})
		})

		Convey("When the file is not an array", func() {
			c := catalog.NewFileCatalog(writeCatalog(t, `{"serviceCategory":"Plumbing"}`))
			_, err := c.Lookup(ctx, "Plumbing")

			Convey("Then a read error is returned", func() {
				So(errors.Is(err, catalog.ErrReadCatalog), ShouldBeTrue)
			})
		})

		Convey("When a record has a non-string category", func() {
			c := catalog.NewFileCatalog(writeCatalog(t,
				`[{"fullName":"Ana","serviceCategory":"Plumbing"},{"fullName":"Legacy","serviceCategory":7}]`))
			matched, err := c.Lookup(ctx, "Plumbing")

			Convey("Then the other providers are still served", func() {
				So(err, ShouldBeNil)
				So(len(matched), ShouldEqual, 1)
				So(string(matched[0]), ShouldContainSubstring, "Ana")
			})
		})

		Convey("When a record is not an object", func() {
			c := catalog.NewFileCatalog(writeCatalog(t, `[{"serviceCategory":"Plumbing"},"Plumbing"]`))
			_, err := c.Lookup(ctx, "Plumbing")

			Convey("Then a read error is returned", func() {
				So(errors.Is(err, catalog.ErrReadCatalog), ShouldBeTrue)
			})
		})
	})
}
