package report_test

import (
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func entry(id string, at time.Time, categoryID int64, categoryName, amount string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:           id,
		Timestamp:    at.UnixMilli(),
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Amount:       decimal.RequireFromString(amount),
	}
}

var _ = Describe("Aggregation", func() {
	withGain := []*category.Category{{ID: 1, Name: category.GainName}, {ID: 2, Name: "Food"}}
	withoutGain := []*category.Category{{ID: 2, Name: "Food"}}
	march := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

	Describe("Classifier", func() {
		It("should classify by category when Gain exists", func() {
			c := report.NewClassifier(withGain)
			Expect(c.Degraded()).To(BeFalse())
			Expect(c.IsGain(entry("a", march(1, 0), 1, category.GainName, "10"))).To(BeTrue())
			Expect(c.IsGain(entry("b", march(1, 0), 2, "Food", "10"))).To(BeFalse())
		})

		It("should fall back to the amount sign without a Gain category", func() {
			c := report.NewClassifier(withoutGain)
			Expect(c.Degraded()).To(BeTrue())
			Expect(c.IsGain(entry("a", march(1, 0), 2, "Food", "-10"))).To(BeTrue())
			Expect(c.IsGain(entry("b", march(1, 0), 2, "Food", "10"))).To(BeFalse())
		})

		It("should skip malformed rows", func() {
			c := report.NewClassifier(withGain)
			valid, skipped := c.Sanitize([]*ledger.Transaction{
				entry("a", march(1, 0), 2, "Food", "10"),
				entry("b", march(1, 0), 2, "Food", "0"),
				entry("c", march(1, 0), 2, "Food", "-3"),
				entry("d", march(1, 0), 9, "", "3"),
				nil,
			})
			Expect(valid).To(HaveLen(1))
			Expect(skipped).To(Equal(4))
		})
	})

	Describe("PartitionByKind", func() {
		It("should report magnitudes in degraded mode", func() {
			p := report.PartitionByKind([]*ledger.Transaction{
				entry("a", march(1, 0), 2, "Food", "-500"),
				entry("b", march(1, 0), 2, "Food", "20"),
				entry("c", march(2, 0), 2, "Food", "0"),
			}, report.NewClassifier(withoutGain))

			Expect(p.Degraded).To(BeTrue())
			Expect(p.Gains).To(HaveLen(1))
			Expect(p.Expenses).To(HaveLen(1))
			Expect(p.GainTotal.Equal(decimal.NewFromInt(500))).To(BeTrue())
			Expect(p.ExpenseTotal.Equal(decimal.NewFromInt(20))).To(BeTrue())
		})
	})

	Describe("GroupByDay", func() {
		It("should bucket by calendar day in the given location", func() {
			plus7 := time.FixedZone("UTC+7", 7*3600)
			days := report.GroupByDay([]*ledger.Transaction{
				entry("a", time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), 2, "Food", "10"),
				entry("b", time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), 2, "Food", "5"),
				entry("c", time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC), 1, category.GainName, "100"),
			}, report.NewClassifier(withGain), plus7)

			Expect(days).To(HaveLen(2))
			Expect(days[0].Date).To(Equal("2024-03-01"))
			Expect(days[0].Expenses.Equal(decimal.NewFromInt(5))).To(BeTrue())
			Expect(days[1].Date).To(Equal("2024-03-02"))
			Expect(days[1].Expenses.Equal(decimal.NewFromInt(10))).To(BeTrue())
			Expect(days[1].Gains.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(days[1].Count).To(Equal(2))
		})
	})

	Describe("FillMonth", func() {
		It("should cover every day of a leap February", func() {
			filled := report.FillMonth([]report.DayTotal{
				{Date: "2024-02-10", Gains: decimal.Zero, Expenses: decimal.NewFromInt(3), Count: 1},
			}, 2024, time.February, time.UTC)

			Expect(filled).To(HaveLen(29))
			Expect(filled[0].Date).To(Equal("2024-02-01"))
			Expect(filled[9].Count).To(Equal(1))
			Expect(filled[28].Date).To(Equal("2024-02-29"))
			Expect(filled[28].Expenses.IsZero()).To(BeTrue())
		})
	})

	Describe("GroupByCategory", func() {
		It("should order by total then name", func() {
			totals := report.GroupByCategory([]*ledger.Transaction{
				entry("a", march(1, 0), 3, "Rent", "50"),
				entry("b", march(1, 0), 2, "Food", "30"),
				entry("c", march(2, 0), 2, "Food", "20"),
				entry("d", march(2, 0), 4, "Fuel", "80"),
			}, report.NewClassifier(withGain))

			Expect(totals).To(HaveLen(3))
			Expect(totals[0].CategoryName).To(Equal("Fuel"))
			Expect(totals[1].CategoryName).To(Equal("Food"))
			Expect(totals[1].Count).To(Equal(2))
			Expect(totals[2].CategoryName).To(Equal("Rent"))
		})
	})
})

var _ = Describe("Filter", func() {
	It("should resolve whole-day bounds in milliseconds", func() {
		q := report.Filter{StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 1)}.Query()
		Expect(*q.FromMs).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))
		Expect(*q.ToMs).To(Equal(time.Date(2024, 3, 1, 23, 59, 59, int(999*time.Millisecond), time.UTC).UnixMilli()))
	})

	It("should drop all values and trim search text", func() {
		q := report.Filter{PaymentMethod: "ALL", Category: " all ", SearchText: "  tea ", Limit: -4}.Query()
		Expect(q.PaymentMethod).To(BeEmpty())
		Expect(q.Category).To(BeEmpty())
		Expect(q.Search).To(Equal("tea"))
		Expect(q.Limit).To(BeZero())
	})

	It("should parse days in the given location", func() {
		t, err := report.ParseDate("start_date", "2024-03-09", time.UTC)
		Expect(err).NotTo(HaveOccurred())
		Expect(*t).To(Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)))

		t, err = report.ParseDate("start_date", "", time.UTC)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNil())

		_, err = report.ParseDate("start_date", "09/03/2024", time.UTC)
		Expect(err).To(HaveOccurred())
	})
})
