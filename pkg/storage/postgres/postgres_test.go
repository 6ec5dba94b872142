package postgres_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/storage"
	"github.com/campusai/campus/pkg/storage/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("CAMPUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("CAMPUS_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Truncate(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("stores and retrieves an item", func() {
		item := &news.Item{ID: "a", Title: "Hiring", Category: "jobs", Content: "...", CreatedAt: base}

		inserted, err := driver.Put(ctx, item)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeTrue())

		got, err := driver.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("Hiring"))
		Expect(got.CreatedAt.Equal(base)).To(BeTrue())
	})

	It("ignores duplicate IDs", func() {
		item := &news.Item{ID: "a", Title: "Hiring", CreatedAt: base}
		_, err := driver.Put(ctx, item)
		Expect(err).NotTo(HaveOccurred())

		inserted, err := driver.Put(ctx, item)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeFalse())
	})

	It("returns NotFoundError for unknown IDs", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
	})

	It("returns the latest items newest first", func() {
		for i, id := range []string{"a", "b", "c"} {
			_, err := driver.Put(ctx, &news.Item{ID: id, Title: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
			Expect(err).NotTo(HaveOccurred())
		}

		items, err := driver.Latest(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(items[0].ID).To(Equal("c"))
		Expect(items[1].ID).To(Equal("b"))
	})
})
