package report_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/report"
	"github.com/frahmantamala/pocket-ledger/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Report Handler", func() {
	var (
		f      *fixture
		router *chi.Mux
		food   int64
	)

	BeforeEach(func() {
		f = newFixture()
		food = f.category("Food", "50")
		handler := report.NewHandler(transport.NewBaseHandler(nil), f.reports)
		router = chi.NewRouter()
		router.Get("/transactions", handler.ListTransactions)
		router.Get("/reports/monthly", handler.GetMonthlySummary)
		router.Get("/reports/budgets", handler.GetBudgets)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("should list filtered transactions", func() {
		f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "bread")
		f.add(time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC), "gpay", food, "12", "milk")

		w := get("/transactions?start_date=2024-03-01&end_date=2024-03-01&payment_method=all&category=Food")
		Expect(w.Code).To(Equal(http.StatusOK))

		var body report.TransactionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Transactions).To(HaveLen(1))
		Expect(*body.Transactions[0].Reason).To(Equal("bread"))
	})

	It("should return an empty list rather than null", func() {
		w := get("/transactions")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"transactions":[]`))
	})

	DescribeTable("should reject malformed query parameters",
		func(query string) {
			w := get("/transactions?" + query)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		},
		Entry("bad start date", "start_date=03/01/2024"),
		Entry("reversed range", "start_date=2024-03-05&end_date=2024-03-01"),
		Entry("unknown method", "payment_method=card"),
		Entry("zero limit", "limit=0"),
		Entry("huge limit", "limit=100000"),
	)

	It("should summarise a month", func() {
		f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", f.gainID, "100", "")
		f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "30", "")

		w := get("/reports/monthly?year=2024&month=3")
		Expect(w.Code).To(Equal(http.StatusOK))

		var summary report.MonthlySummary
		Expect(json.NewDecoder(w.Body).Decode(&summary)).To(Succeed())
		Expect(summary.TransactionCount).To(Equal(2))
		Expect(summary.Net.String()).To(Equal("70"))
		Expect(summary.Daily).To(HaveLen(31))
	})

	It("should reject an out of range month", func() {
		w := get("/reports/monthly?year=2024&month=0")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report budgets", func() {
		f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "60", "")

		w := get("/reports/budgets?year=2024&month=3")
		Expect(w.Code).To(Equal(http.StatusOK))

		var body report.BudgetsResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Budgets).To(HaveLen(1))
		Expect(body.Budgets[0].Exceeded).To(BeTrue())
	})
})
