package ledger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ledger Handler", func() {
	var (
		f      *fixture
		router *chi.Mux
	)

	BeforeEach(func() {
		f = newFixture(ledger.Options{})
		handler := ledger.NewHandler(transport.NewBaseHandler(nil), f.ledger)
		router = chi.NewRouter()
		router.Post("/transactions", handler.CreateTransaction)
		router.Get("/transactions/{id}", handler.GetTransaction)
		router.Put("/transactions/{id}", handler.UpdateTransaction)
		router.Delete("/transactions/{id}", handler.DeleteTransaction)
	})

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should run a create, update, delete cycle", func() {
		food := f.category("Food")

		w := send(http.MethodPost, "/transactions",
			fmt.Sprintf(`{"payment_method":"cash","category_id":%d,"amount":42.5,"reason":"lunch"}`, food))
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created ledger.Transaction
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.CategoryName).To(Equal("Food"))
		expectAmount(f.balance("cash"), "-42.5")

		w = send(http.MethodPut, "/transactions/"+created.ID,
			fmt.Sprintf(`{"payment_method":"gpay","category_id":%d,"amount":10}`, f.gainID))
		Expect(w.Code).To(Equal(http.StatusOK))
		expectAmount(f.balance("cash"), "0")
		expectAmount(f.balance("gpay"), "10")

		w = send(http.MethodGet, "/transactions/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusOK))

		w = send(http.MethodDelete, "/transactions/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = send(http.MethodGet, "/transactions/"+created.ID, "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should map validation failures to 400", func() {
		w := send(http.MethodPost, "/transactions", `{"payment_method":"card","category_id":1,"amount":5}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should map an unknown category to 404", func() {
		w := send(http.MethodPost, "/transactions", `{"payment_method":"cash","category_id":777,"amount":5}`)
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("CATEGORY_NOT_FOUND"))
	})

	It("should reject unknown fields", func() {
		w := send(http.MethodPost, "/transactions", `{"payment_method":"cash","category_id":1,"amount":5,"sign":"-"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
