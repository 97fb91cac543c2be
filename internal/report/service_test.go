package report_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	balancePostgres "github.com/frahmantamala/pocket-ledger/internal/balance/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/pocket-ledger/internal/category/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/frahmantamala/pocket-ledger/internal/database"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/pocket-ledger/internal/ledger/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	reportPostgres "github.com/frahmantamala/pocket-ledger/internal/report/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestReport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Report Suite")
}

type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	categories *category.Service
	ledger     *ledger.Service
	reports    *report.Service
	gainID     int64
}

func newFixture() *fixture {
	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = database.Close(db) })
	sqlxDB, err := database.SQLX(db)
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	writeMu := &sync.Mutex{}
	m := metrics.New()

	categories := category.NewService(categoryPostgres.NewCategoryRepository(db), logger)
	balances := balance.NewService(balancePostgres.NewBalanceRepository(db), writeMu, m, logger)
	Expect(categories.EnsureReserved(ctx)).To(Succeed())
	Expect(balances.EnsureInitialized(ctx)).To(Succeed())

	f := &fixture{
		ctx:        ctx,
		db:         db,
		categories: categories,
		ledger:     ledger.NewService(ledgerPostgres.NewLedgerRepository(db), writeMu, nil, m, ledger.Options{}, logger),
		reports:    report.NewService(reportPostgres.NewReportRepository(sqlxDB), categories, time.UTC, logger),
	}
	gain, err := categories.GetByName(ctx, category.GainName)
	Expect(err).NotTo(HaveOccurred())
	f.gainID = gain.ID
	return f
}

func (f *fixture) category(name string, limit string) int64 {
	dto := category.CreateCategoryDTO{Name: name}
	if limit != "" {
		l := decimal.RequireFromString(limit)
		dto.MonthlyLimit = &l
	}
	cat, err := f.categories.Create(f.ctx, dto)
	Expect(err).NotTo(HaveOccurred())
	return cat.ID
}

func (f *fixture) add(at time.Time, method string, categoryID int64, amount, reason string) *ledger.Transaction {
	ts := at.UnixMilli()
	dto := ledger.CreateTransactionDTO{
		PaymentMethod: method,
		CategoryID:    categoryID,
		Amount:        decimal.RequireFromString(amount),
		Timestamp:     &ts,
	}
	if reason != "" {
		dto.Reason = &reason
	}
	txn, err := f.ledger.Add(f.ctx, dto)
	Expect(err).NotTo(HaveOccurred())
	return txn
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ids(txns []*ledger.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.ID
	}
	return out
}

var _ = Describe("Report Service", func() {
	var (
		f    *fixture
		food int64
		fuel int64
	)

	BeforeEach(func() {
		f = newFixture()
		food = f.category("Food", "100")
		fuel = f.category("Fuel", "")
	})

	Describe("ListTransactions", func() {
		It("should return entries newest first with category names", func() {
			a := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "")
			b := f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "gpay", fuel, "20", "")
			c := f.add(time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), "cash", f.gainID, "30", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{c.ID, b.ID, a.ID}))
			Expect(txns[0].CategoryName).To(Equal(category.GainName))
			Expect(txns[1].CategoryName).To(Equal("Fuel"))
		})

		It("should filter by category name", func() {
			a := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", fuel, "20", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{Category: "Food"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{a.ID}))
		})

		It("should treat all as no restriction", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "gpay", fuel, "20", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{Category: "All", PaymentMethod: "all"})
			Expect(err).NotTo(HaveOccurred())
			Expect(txns).To(HaveLen(2))
		})

		It("should filter by payment method", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "")
			b := f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "gpay", fuel, "20", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{PaymentMethod: "gpay"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{b.ID}))
		})

		It("should include both ends of a date range to the millisecond", func() {
			before := f.add(time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC), "cash", food, "1", "")
			first := f.add(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "cash", food, "2", "")
			last := f.add(time.Date(2024, 3, 5, 23, 59, 59, int(999*time.Millisecond), time.UTC), "cash", food, "3", "")
			after := f.add(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), "cash", food, "4", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{
				StartDate: day(2024, 3, 1),
				EndDate:   day(2024, 3, 5),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{last.ID, first.ID}))
			Expect(ids(txns)).NotTo(ContainElement(before.ID))
			Expect(ids(txns)).NotTo(ContainElement(after.ID))
		})

		It("should match reason text case-insensitively", func() {
			a := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "Lunch with Team")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "10", "dinner")
			f.add(time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), "cash", food, "10", "")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{SearchText: "lunch"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{a.ID}))
		})

		It("should fold non-ASCII letters when matching reason text", func() {
			a := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "4.5", "CAFÉ latte")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "4.5", "cafe latte")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{SearchText: "café"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{a.ID}))
		})

		It("should apply the limit after matching reason text", func() {
			older := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "Straße")
			for i := 2; i <= 4; i++ {
				f.add(time.Date(2024, 3, i, 9, 0, 0, 0, time.UTC), "cash", food, "10", "groceries")
			}

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{SearchText: "STRASSE", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{older.ID}))
		})

		It("should treat LIKE wildcards in the search as literals", func() {
			a := f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "10", "50% off")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "10", "500 off")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{SearchText: "0%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(txns)).To(Equal([]string{a.ID}))
		})

		It("should AND every condition and honour the limit", func() {
			for i := 1; i <= 5; i++ {
				f.add(time.Date(2024, 3, i, 9, 0, 0, 0, time.UTC), "cash", food, "10", "coffee")
			}
			f.add(time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), "gpay", food, "10", "coffee")

			txns, err := f.reports.ListTransactions(f.ctx, report.Filter{
				PaymentMethod: "cash",
				Category:      "Food",
				SearchText:    "COFFEE",
				Limit:         2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(txns).To(HaveLen(2))
			Expect(txns[0].Time().UTC().Day()).To(Equal(5))
			Expect(txns[1].Time().UTC().Day()).To(Equal(4))
		})

		It("should reject an unknown payment method", func() {
			_, err := f.reports.ListTransactions(f.ctx, report.Filter{PaymentMethod: "card"})
			Expect(err).To(MatchError(appErrors.ErrInvalidPaymentMethod))
		})

		It("should reject an end date before the start date", func() {
			_, err := f.reports.ListTransactions(f.ctx, report.Filter{
				StartDate: day(2024, 3, 5),
				EndDate:   day(2024, 3, 1),
			})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("MonthlySummary", func() {
		It("should total gains and expenses for the month only", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", f.gainID, "1000", "")
			f.add(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "cash", food, "40", "")
			f.add(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), "gpay", fuel, "60", "")
			f.add(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "gpay", fuel, "999", "")

			summary, err := f.reports.MonthlySummary(f.ctx, 2024, time.March, report.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Degraded).To(BeFalse())
			Expect(summary.TransactionCount).To(Equal(3))
			Expect(summary.GainTotal.Equal(decimal.NewFromInt(1000))).To(BeTrue())
			Expect(summary.ExpenseTotal.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(summary.Net.Equal(decimal.NewFromInt(900))).To(BeTrue())

			Expect(summary.Daily).To(HaveLen(31))
			Expect(summary.Daily[0].Date).To(Equal("2024-03-01"))
			Expect(summary.Daily[0].Count).To(Equal(2))
			Expect(summary.Daily[1].Count).To(BeZero())

			Expect(summary.Categories).To(HaveLen(3))
			Expect(summary.Categories[0].CategoryName).To(Equal(category.GainName))
			Expect(summary.Categories[0].Gain).To(BeTrue())
			Expect(summary.Categories[1].CategoryName).To(Equal("Fuel"))
		})

		It("should keep non-date filters", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "40", "")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "gpay", fuel, "60", "")

			summary, err := f.reports.MonthlySummary(f.ctx, 2024, time.March, report.Filter{
				PaymentMethod: "gpay",
				StartDate:     day(2020, 1, 1),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TransactionCount).To(Equal(1))
			Expect(summary.ExpenseTotal.Equal(decimal.NewFromInt(60))).To(BeTrue())
		})

		It("should reject an invalid month", func() {
			_, err := f.reports.MonthlySummary(f.ctx, 2024, time.Month(13), report.Filter{})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("BudgetStatus", func() {
		It("should compare spend against each limit", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "70", "")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", food, "45", "")
			f.add(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "cash", fuel, "500", "")

			lines, err := f.reports.BudgetStatus(f.ctx, 2024, time.March)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].CategoryName).To(Equal("Food"))
			Expect(lines[0].Spent.Equal(decimal.NewFromInt(115))).To(BeTrue())
			Expect(lines[0].Remaining.Equal(decimal.NewFromInt(-15))).To(BeTrue())
			Expect(lines[0].Exceeded).To(BeTrue())
		})

		It("should report zero spend for an untouched budget", func() {
			lines, err := f.reports.BudgetStatus(f.ctx, 2024, time.March)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Spent.IsZero()).To(BeTrue())
			Expect(lines[0].Exceeded).To(BeFalse())
		})
	})

	Describe("CategorySpend", func() {
		It("should sum the month containing the instant", func() {
			f.add(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "cash", food, "70", "")
			f.add(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC), "gpay", food, "5", "")
			f.add(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "cash", food, "100", "")

			spent, err := f.reports.CategorySpend(f.ctx, "Food", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
			Expect(err).NotTo(HaveOccurred())
			Expect(spent.Equal(decimal.NewFromInt(75))).To(BeTrue())
		})
	})
})
