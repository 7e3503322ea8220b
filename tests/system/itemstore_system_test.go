//go:build system

package system_test

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"digifeeds/internal/dbclient"
	"digifeeds/internal/domain"
)

// Runs against a live API server. Requires RUN_BLACKBOX_SYSTEM_TEST=1 and a
// reachable DIGIFEEDS_API_URL (defaults to http://localhost:8080).
var _ = Describe("Item store over HTTP", Ordered, func() {
	var client *dbclient.Client
	var ctx context.Context
	var barcode string

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run against live services")
		}

		baseURL := os.Getenv("DIGIFEEDS_API_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		Eventually(func() int {
			resp, err := http.Get(baseURL + "/readyz")
			if err != nil {
				return 0
			}
			defer resp.Body.Close()
			return resp.StatusCode
		}, 30*time.Second, time.Second).Should(Equal(http.StatusOK))

		client = dbclient.New(baseURL)
		ctx = context.Background()
		barcode = fmt.Sprintf("system-test-%d", rand.Int63())
	})

	AfterAll(func() {
		if client != nil && barcode != "" {
			_, _ = client.DeleteItem(ctx, barcode)
		}
	})

	It("walks an item through its status lifecycle", func() {
		By("creating the item")
		item, err := client.GetOrCreateItem(ctx, barcode)
		Expect(err).ToNot(HaveOccurred())
		Expect(item.Barcode).To(Equal(barcode))
		Expect(item.Statuses).To(BeEmpty())

		By("appending statuses")
		item, err = client.AddItemStatus(ctx, barcode, domain.StatusInZephir)
		Expect(err).ToNot(HaveOccurred())
		item, err = client.AddItemStatus(ctx, barcode, domain.StatusPendingDeletion)
		Expect(err).ToNot(HaveOccurred())
		Expect(item.HasStatus(domain.StatusInZephir)).To(BeTrue())
		Expect(item.HasStatus(domain.StatusPendingDeletion)).To(BeTrue())

		By("finding the item through the query surface")
		page, err := client.ListItems(ctx, domain.FilterPendingDeletion, "status:in_zephir", 100, 0)
		Expect(err).ToNot(HaveOccurred())
		barcodes := make([]string, 0, len(page.Items))
		for _, it := range page.Items {
			barcodes = append(barcodes, it.Barcode)
		}
		Expect(barcodes).To(ContainElement(barcode))

		By("writing the hathifiles timestamp exactly once")
		ts := time.Date(2024, 12, 14, 2, 1, 5, 0, time.UTC)
		item, err = client.SetHathifilesTimestamp(ctx, barcode, ts)
		Expect(err).ToNot(HaveOccurred())
		Expect(item.HathifilesTimestamp).ToNot(BeNil())
		Expect(item.HasStatus(domain.StatusInHathifiles)).To(BeTrue())

		_, err = client.SetHathifilesTimestamp(ctx, barcode, ts.Add(time.Hour))
		Expect(err).To(MatchError(dbclient.ErrAlreadyHasValue))

		By("deleting the item and its events")
		_, err = client.DeleteItem(ctx, barcode)
		Expect(err).ToNot(HaveOccurred())
		_, err = client.GetItem(ctx, barcode)
		Expect(err).To(MatchError(dbclient.ErrNotFound))
	})
})
