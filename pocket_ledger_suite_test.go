package main_test

import (
	"context"
	"testing"

	"github.com/frahmantamala/pocket-ledger/api"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPocketLedger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PocketLedger Suite")
}

var _ = Describe("embedded API document", func() {
	It("loads and validates", func() {
		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Servers).To(HaveLen(1))
		Expect(doc.Servers[0].URL).To(Equal("/api/v1"))
	})

	DescribeTable("describes every ledger route",
		func(path, method string) {
			doc, err := api.Load(context.Background())
			Expect(err).NotTo(HaveOccurred())
			item := doc.Paths.Find(path)
			Expect(item).NotTo(BeNil(), path)
			Expect(item.GetOperation(method)).NotTo(BeNil(), method+" "+path)
		},
		Entry(nil, "/categories", "POST"),
		Entry(nil, "/categories/{id}", "DELETE"),
		Entry(nil, "/balances/{method}", "PUT"),
		Entry(nil, "/transactions", "GET"),
		Entry(nil, "/transactions", "POST"),
		Entry(nil, "/transactions/{id}", "PUT"),
		Entry(nil, "/reports/monthly", "GET"),
		Entry(nil, "/reports/budgets", "GET"),
	)
})
