package category_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/pocket-ledger/internal/category/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/database"
	"github.com/frahmantamala/pocket-ledger/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		router  *chi.Mux
		service *category.Service
	)

	BeforeEach(func() {
		ctx := context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := database.OpenMemory(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = database.Close(db) })

		service = category.NewService(categoryPostgres.NewCategoryRepository(db), slogger)
		Expect(service.EnsureReserved(ctx)).To(Succeed())

		handler := category.NewHandler(transport.NewBaseHandler(slogger), service)
		router = chi.NewRouter()
		router.Get("/categories", handler.GetCategories)
		router.Post("/categories", handler.CreateCategory)
		router.Get("/categories/{id}", handler.GetCategory)
		router.Put("/categories/{id}", handler.UpdateCategory)
		router.Delete("/categories/{id}", handler.DeleteCategory)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should list the reserved categories on a fresh database", func() {
		w := do(http.MethodGet, "/categories", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Categories).To(HaveLen(2))
		Expect(response.Categories[0].Name).To(Equal(category.GainName))
		Expect(response.Categories[1].Name).To(Equal(category.UncategorizedName))
	})

	It("should create and then fetch a category", func() {
		w := do(http.MethodPost, "/categories", map[string]interface{}{"name": "Food", "monthly_limit": 300})
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created category.Category
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Name).To(Equal("Food"))

		w = do(http.MethodGet, "/categories/"+jsonID(created.ID), nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should map a duplicate to 409", func() {
		Expect(do(http.MethodPost, "/categories", map[string]string{"name": "Food"}).Code).To(Equal(http.StatusCreated))

		w := do(http.MethodPost, "/categories", map[string]string{"name": "FOOD"})
		Expect(w.Code).To(Equal(http.StatusConflict))

		var resp struct {
			Error struct {
				Type string `json:"type"`
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Error.Type).To(Equal(string(appErrors.ErrorTypeDuplicate)))
		Expect(resp.Error.Code).To(Equal(string(appErrors.ErrCodeCategoryExists)))
	})

	It("should reject malformed bodies", func() {
		req := httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should refuse to delete a reserved category", func() {
		gain, err := service.GetByName(context.Background(), category.GainName)
		Expect(err).NotTo(HaveOccurred())

		w := do(http.MethodDelete, "/categories/"+jsonID(gain.ID), nil)
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("should delete an unused category", func() {
		w := do(http.MethodPost, "/categories", map[string]string{"name": "Food"})
		var created category.Category
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

		w = do(http.MethodDelete, "/categories/"+jsonID(created.ID), nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = do(http.MethodGet, "/categories/"+jsonID(created.ID), nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a non-numeric id", func() {
		w := do(http.MethodPut, "/categories/abc", map[string]string{"name": "x"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
