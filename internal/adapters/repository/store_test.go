package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func exerciseStore(s Store) {
	ctx := context.Background()

	Convey("When a key is missing", func() {
		_, err := s.Load(ctx, "invoice/none.html")

		Convey("Then ErrNotFound is returned", func() {
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("When a value is saved and loaded", func() {
		value := []byte("<html>invoice</html>")
		So(s.Save(ctx, "invoice/AI-Acme.html", value), ShouldBeNil)
		value[0] = 'X'

		Convey("Then the stored bytes are returned unchanged", func() {
			got, err := s.Load(ctx, "invoice/AI-Acme.html")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "<html>invoice</html>")
		})
	})

	Convey("When a key is overwritten", func() {
		So(s.Save(ctx, "k", []byte("one")), ShouldBeNil)
		So(s.Save(ctx, "k", []byte("two")), ShouldBeNil)

		Convey("Then the latest value wins", func() {
			got, err := s.Load(ctx, "k")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "two")
		})
	})

	Convey("When an empty value is saved", func() {
		So(s.Save(ctx, "empty", nil), ShouldBeNil)

		Convey("Then it loads as empty, not missing", func() {
			got, err := s.Load(ctx, "empty")
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 0)
		})
	})

	Convey("When the key is blank", func() {
		Convey("Then both operations reject it", func() {
			So(errors.Is(s.Save(ctx, " ", []byte("x")), ErrInvalidKey), ShouldBeTrue)
			_, err := s.Load(ctx, "")
			So(errors.Is(err, ErrInvalidKey), ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := NewMemoryStore()
		exerciseStore(s)

		Convey("When it is closed", func() {
			So(s.Close(), ShouldBeNil)

			Convey("Then further calls fail", func() {
				So(errors.Is(s.Save(context.Background(), "k", nil), ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a SQLite store on disk", t, func() {
		path := filepath.Join(t.TempDir(), "invoy.db")
		s, err := NewSQLiteStore(path)
		So(err, ShouldBeNil)
		defer s.Close()

		exerciseStore(s)

		Convey("When the database is reopened", func() {
			So(s.Save(context.Background(), "persist", []byte("kept")), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			reopened, err := NewSQLiteStore(path, WithJournalMode("DELETE"))
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then saved values survive", func() {
				got, err := reopened.Load(context.Background(), "persist")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "kept")
			})
		})
	})

	Convey("Given an in-memory SQLite store", t, func() {
		s, err := NewSQLiteStore(":memory:", WithBusyTimeout(0))
		So(err, ShouldBeNil)
		defer s.Close()

		exerciseStore(s)
	})
}
